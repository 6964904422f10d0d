package testevents

import (
	"time"

	"github.com/okian/irontrials/internal/domain/model"
)

// Config holds configuration for the session replay
type Config struct {
	BaseURL     string        // Base URL of the tracker daemon
	Skills      int           // Number of skills to level from 1 to 99
	ChatLines   int           // Number of chat lines to generate
	Workers     int           // Number of concurrent submission lanes
	Seed        int64         // Seed for the script generator
	Timeout     time.Duration // HTTP request timeout
	SettleDelay time.Duration // Wait between submission and verification
	OutputFile  string        // Output file for the generated script
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// StepKind selects the host endpoint a step is posted to.
type StepKind string

const (
	StepChat StepKind = "chat"
	StepStat StepKind = "stat"
)

// Step is one host input of the replay script.
type Step struct {
	Kind  StepKind `json:"kind"`
	Text  string   `json:"text,omitempty"`
	Type  string   `json:"type,omitempty"`
	Skill string   `json:"skill,omitempty"`
	Level int      `json:"level,omitempty"`
	XP    int      `json:"xp,omitempty"`

	// Expect lists the event kinds the step should produce, in order.
	Expect []model.EventKind `json:"expect,omitempty"`
}

// lane returns the submission lane of the step. Stat steps of one skill
// share a lane so they arrive in order.
func (s Step) lane(index, lanes int) int {
	if s.Kind == StepStat {
		var h uint32
		for _, r := range s.Skill {
			h = h*31 + uint32(r)
		}
		return int(h % uint32(lanes))
	}
	return index % lanes
}

// chatRequest mirrors the daemon's POST /v1/host/chat body.
type chatRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// statRequest mirrors the daemon's POST /v1/host/stats body.
type statRequest struct {
	Skill string `json:"skill"`
	Level int    `json:"level"`
	XP    int    `json:"xp"`
}

// FeedResponse mirrors the daemon's feed listings.
type FeedResponse struct {
	Events []model.GameEvent `json:"events"`
	Count  int               `json:"count"`
}

// Stats holds replay statistics
type Stats struct {
	StepsGenerated int
	StepsSubmitted int
	StepsAccepted  int
	StepsFailed    int
	EventsExpected int
	EventsObserved int
	ExpectedByKind map[model.EventKind]int
	ObservedByKind map[model.EventKind]int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
