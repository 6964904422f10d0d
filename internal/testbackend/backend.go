// Package testbackend is a reference tracking backend for local runs and
// tests. It serves per-group milestone configurations, group rosters, bingo
// boards and accepts achievement events, all held in memory.
package testbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/irontrials/internal/domain/dedupe"
	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/pkg/logger"
)

const maxRecentEvents = 50

// requiredConfigFields must all be present in a milestone configuration
// update.
var requiredConfigFields = []string{
	"levelMilestones",
	"questMilestones",
	"achievementMilestones",
	"rareDrops",
	"bossKills",
	"customMilestones",
}

// Backend holds the in-memory state of the sample backend.
type Backend struct {
	mu      sync.RWMutex
	order   []string
	configs map[string]*taxonomy.Taxonomy
	groups  map[string]*model.GroupData
	boards  map[string]*model.BingoBoard
	// seen holds group/event id pairs already applied; resends are acked
	// without being applied again.
	seen dedupe.Deduper

	now    func() time.Time
	logger logger.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock sets the time source used for seeded season dates.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets a custom logger for the backend.
func WithLogger(l logger.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a backend seeded with the built-in groups.
func New(opts ...Option) *Backend {
	b := &Backend{
		order:   slices.Clone(seedOrder),
		configs: seedConfigs(),
		groups:  make(map[string]*model.GroupData),
		boards:  make(map[string]*model.BingoBoard),
		seen:    dedupe.NewInMemoryDeduper(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("testbackend")
	}
	for _, id := range b.order {
		b.groups[id] = seedGroup(id, b.now().Unix())
		b.boards[id] = seedBoard(id)
	}
	return b
}

// Register attaches the backend routes to mux.
func (b *Backend) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/iron-trials/milestones", b.handleMilestones)
	mux.HandleFunc("GET /v1/milestones", b.handleMilestones)
	mux.HandleFunc("GET /api/iron-trials/groups", b.handleListGroups)
	mux.HandleFunc("PUT /api/iron-trials/milestones/{id}", b.handleUpdateMilestones)

	mux.HandleFunc("GET /v1/groups/{id}", b.handleGroup)
	mux.HandleFunc("POST /v1/groups/{id}/events", b.handleEvent)
	mux.HandleFunc("GET /v1/bingo/boards/{id}", b.handleBingo)
}

// Handler returns a mux serving every backend route.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	b.Register(mux)
	return mux
}

// Groups returns the configured group ids in listing order.
func (b *Backend) Groups() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.order)
}

type errorBody struct {
	Error           string   `json:"error"`
	AvailableGroups []string `json:"available_groups,omitempty"`
}

func (b *Backend) handleMilestones(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("groupId")
	if id == "" {
		id = defaultGroupID
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	cfg, ok := b.configs[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error:           fmt.Sprintf("Group '%s' not found", id),
			AvailableGroups: slices.Clone(b.order),
		})
		return
	}
	writeJSON(w, http.StatusOK, taxonomy.Envelope{
		GroupID:     id,
		Version:     configVersion,
		LastUpdated: configLastUpdated,
		Config:      cfg.Clone(),
	})
}

type groupList struct {
	Groups []string `json:"groups"`
	Count  int      `json:"count"`
}

func (b *Backend) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := b.Groups()
	writeJSON(w, http.StatusOK, groupList{Groups: groups, Count: len(groups)})
}

type updateResponse struct {
	Message string `json:"message"`
	GroupID string `json:"groupId"`
}

func (b *Backend) handleUpdateMilestones(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No data provided"})
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No data provided"})
		return
	}
	for _, f := range requiredConfigFields {
		if _, ok := fields[f]; !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required field: " + f})
			return
		}
	}
	var cfg taxonomy.Taxonomy
	if err := json.Unmarshal(raw, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid configuration: " + err.Error()})
		return
	}

	b.mu.Lock()
	if _, ok := b.configs[id]; !ok {
		b.order = append(b.order, id)
		b.groups[id] = seedGroup(id, b.now().Unix())
		b.boards[id] = seedBoard(id)
	}
	b.configs[id] = cfg.Normalize()
	b.mu.Unlock()

	b.logger.Info(r.Context(), "milestone configuration updated", logger.String("group_id", id))
	writeJSON(w, http.StatusOK, updateResponse{
		Message: fmt.Sprintf("Configuration updated for group '%s'", id),
		GroupID: id,
	})
}

func (b *Backend) handleGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b.mu.RLock()
	defer b.mu.RUnlock()
	g, ok := b.groups[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("Group '%s' not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type eventAck struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (b *Backend) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var ev model.GameEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid event: " + err.Error()})
		return
	}
	if !ev.Kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("Unknown event kind '%s'", ev.Kind)})
		return
	}

	b.mu.Lock()
	g, ok := b.groups[id]
	duplicate := ok && ev.ID != "" && b.seen.SeenAndRecord(r.Context(), id+"/"+ev.ID)
	if ok && !duplicate {
		b.apply(g, b.boards[id], ev)
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("Group '%s' not found", id)})
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, eventAck{Status: "duplicate", ID: ev.ID})
		return
	}
	b.logger.Info(r.Context(), "event recorded",
		logger.String("group_id", id),
		logger.String("player", ev.PlayerName),
		logger.String("kind", string(ev.Kind)),
		logger.String("description", ev.Description),
	)
	writeJSON(w, http.StatusCreated, eventAck{Status: "recorded", ID: ev.ID})
}

// apply folds ev into the group's feed, roster, lives and bingo board.
func (b *Backend) apply(g *model.GroupData, board *model.BingoBoard, ev model.GameEvent) {
	g.RecentEvents = append([]model.GameEvent{ev}, g.RecentEvents...)
	if len(g.RecentEvents) > maxRecentEvents {
		g.RecentEvents = g.RecentEvents[:maxRecentEvents]
	}

	if ev.PlayerName != "" {
		i := slices.IndexFunc(g.Players, func(p model.PlayerData) bool { return p.Name == ev.PlayerName })
		if i < 0 {
			g.Players = append(g.Players, model.PlayerData{Name: ev.PlayerName, Status: "alive"})
			i = len(g.Players) - 1
		}
		g.Players[i].Points += ev.Points
		if ev.Kind == model.KindDeath {
			g.Players[i].IsHC = false
			if g.Lives != nil && g.Lives.Current > 0 {
				g.Lives.Current--
				g.Lives.LostLives = append(g.Lives.LostLives, ev.PlayerName)
			}
		}
	}

	if board == nil {
		return
	}
	desc := strings.ToLower(ev.Description)
	for i := range board.Tiles {
		t := &board.Tiles[i]
		if t.Completed || !strings.Contains(desc, strings.ToLower(t.Description)) {
			continue
		}
		t.Completed = true
		t.CompletedBy = ev.PlayerName
		t.CompletedAt = ev.Timestamp
	}
}

func (b *Backend) handleBingo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b.mu.RLock()
	defer b.mu.RUnlock()
	board, ok := b.boards[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("No bingo board for group '%s'", id)})
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Warn(context.Background(), "failed to write response", logger.Error(err))
	}
}
