// Package evaluator decides whether a classified fact or a stat change crosses
// a tracked milestone and builds the resulting event.
package evaluator

import (
	"fmt"
	"time"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
)

// Descriptions and metadata for events whose text is fixed.
const (
	deathDescription = "Player Death"
	noXPMetadata     = "xp:0"
)

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithClock sets the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// Evaluator holds the last observed level of every skill.
//
// It is not safe for concurrent use; the owning session calls it from a
// single goroutine.
type Evaluator struct {
	previousLevels map[string]int
	now            func() time.Time
}

// New creates an evaluator with no skill history.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		previousLevels: make(map[string]int),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnStatDelta records the new level of skill and returns a level-up event
// when the level rose onto a tracked milestone. The level is stored whether
// or not an event is produced.
func (e *Evaluator) OnStatDelta(skill string, level, xp int, tax *taxonomy.Taxonomy) (model.GameEvent, bool) {
	previous := e.previousLevels[skill]
	e.previousLevels[skill] = level

	if level <= previous || !tax.IsMilestoneLevel(level) {
		return model.GameEvent{}, false
	}
	return e.event(model.KindLevelUp, fmt.Sprintf("%s %d", skill, level), level, fmt.Sprintf("xp:%d", xp)), true
}

// OnQuestFact returns a quest event when name mentions a quest or achievement
// milestone.
func (e *Evaluator) OnQuestFact(name string, tax *taxonomy.Taxonomy) (model.GameEvent, bool) {
	if !tax.IsSignificantAchievement(name) {
		return model.GameEvent{}, false
	}
	return e.event(model.KindQuestCompleted, name, 0, noXPMetadata), true
}

// OnBossFact returns a boss-kill event for any positive kill count. The boss
// name is not checked against the taxonomy here; callers that want that use
// Taxonomy.IsSignificantBossKill.
func (e *Evaluator) OnBossFact(name string, killCount int, _ *taxonomy.Taxonomy) (model.GameEvent, bool) {
	if killCount <= 0 {
		return model.GameEvent{}, false
	}
	return e.event(model.KindBossKill, name, killCount, noXPMetadata), true
}

// OnDropFact returns a rare-drop event when name mentions a tracked drop.
func (e *Evaluator) OnDropFact(name string, tax *taxonomy.Taxonomy) (model.GameEvent, bool) {
	if !tax.IsRareDrop(name) {
		return model.GameEvent{}, false
	}
	return e.event(model.KindRareDrop, name, 0, noXPMetadata), true
}

// OnDeathFact always returns a death event.
func (e *Evaluator) OnDeathFact() model.GameEvent {
	return e.event(model.KindDeath, deathDescription, 0, noXPMetadata)
}

// PreviousLevel returns the last observed level of skill, 0 when unseen.
func (e *Evaluator) PreviousLevel(skill string) int {
	return e.previousLevels[skill]
}

// event leaves ID and PlayerName to the caller.
func (e *Evaluator) event(kind model.EventKind, description string, points int, metadata string) model.GameEvent {
	return model.GameEvent{
		Kind:        kind,
		Description: description,
		Timestamp:   e.now().Unix(),
		Points:      points,
		Metadata:    metadata,
	}
}
