package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/okian/irontrials/internal/domain/model"
)

// Ingest is the HTTP host adapter. It receives chat lines and stat changes
// posted by the game client and forwards them to the registered callbacks.
type Ingest struct {
	mu   sync.RWMutex
	chat func(text string, typ model.MessageType)
	stat func(skill string, level, xp int)
}

// NewIngest creates an ingest adapter with no callbacks registered.
func NewIngest() *Ingest {
	return &Ingest{}
}

// OnRawChatLine registers the chat callback.
func (in *Ingest) OnRawChatLine(fn func(text string, typ model.MessageType)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.chat = fn
}

// OnStatChanged registers the stat callback.
func (in *Ingest) OnStatChanged(fn func(skill string, level, xp int)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stat = fn
}

// chatRequest mirrors the OpenAPI schema for POST /v1/host/chat.
type chatRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

func (c chatRequest) validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: missing text", ErrBadRequest)
	}
	return nil
}

// statRequest mirrors the OpenAPI schema for POST /v1/host/stats.
type statRequest struct {
	Skill string `json:"skill"`
	Level int    `json:"level"`
	XP    int    `json:"xp"`
}

func (s statRequest) validate() error {
	switch {
	case strings.TrimSpace(s.Skill) == "":
		return fmt.Errorf("%w: missing skill", ErrBadRequest)
	case s.Level < 1:
		return fmt.Errorf("%w: level must be positive", ErrBadRequest)
	case s.XP < 0:
		return fmt.Errorf("%w: xp must not be negative", ErrBadRequest)
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandleChat handles POST /v1/host/chat requests.
func (in *Ingest) HandleChat(w http.ResponseWriter, r *http.Request) {
	const op = "api.host_chat"
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	in.mu.RLock()
	fn := in.chat
	in.mu.RUnlock()
	if fn == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%s: %w", op, ErrUnavailable))
		return
	}
	fn(req.Text, model.ParseMessageType(req.Type))
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleStats handles POST /v1/host/stats requests.
func (in *Ingest) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.host_stats"
	var req statRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	in.mu.RLock()
	fn := in.stat
	in.mu.RUnlock()
	if fn == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%s: %w", op, ErrUnavailable))
		return
	}
	fn(req.Skill, req.Level, req.XP)
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
