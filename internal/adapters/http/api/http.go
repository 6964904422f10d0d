// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/pkg/future"
	"github.com/okian/irontrials/pkg/logger"
)

// Session is the read side of the tracker session the handlers expose.
type Session interface {
	RecentEvents(ctx context.Context) ([]model.GameEvent, error)
	GroupData(ctx context.Context) (*model.GroupData, error)
	BingoBoard(ctx context.Context) (*model.BingoBoard, error)
	Taxonomy() *taxonomy.Taxonomy
	RefreshGroup(ctx context.Context) *future.Future[*model.GroupData]
}

// Server wires HTTP routes for the tracker API.
type Server struct {
	session   Session
	ingest    *Ingest
	presenter *Presenter
	health    *HealthHandler
	upgrader  websocket.Upgrader
	logger    logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(session Session, ingest *Ingest, presenter *Presenter) *Server {
	return &Server{
		session:   session,
		ingest:    ingest,
		presenter: presenter,
		health:    NewHealthHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		logger: logger.Get().Named("api"),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.health.HandleMetrics)

	mux.HandleFunc("POST /v1/host/chat", MetricsMiddleware(s.ingest.HandleChat, "host_chat"))
	mux.HandleFunc("POST /v1/host/stats", MetricsMiddleware(s.ingest.HandleStats, "host_stats"))

	mux.HandleFunc("GET /v1/feed", MetricsMiddleware(s.handleFeed, "feed"))
	mux.HandleFunc("GET /v1/feed/ws", MetricsMiddleware(s.handleStream, "feed_ws"))
	mux.HandleFunc("GET /v1/events/recent", MetricsMiddleware(s.handleRecent, "events_recent"))
	mux.HandleFunc("GET /v1/group", MetricsMiddleware(s.handleGroup, "group"))
	mux.HandleFunc("POST /v1/group/refresh", MetricsMiddleware(s.handleRefresh, "group_refresh"))
	mux.HandleFunc("GET /v1/bingo", MetricsMiddleware(s.handleBingo, "bingo"))
	mux.HandleFunc("GET /v1/taxonomy", MetricsMiddleware(s.handleTaxonomy, "taxonomy"))
}

// Refresh fetches the group from the backend and reloads the display feed
// from the session's recent events.
func (s *Server) Refresh(ctx context.Context) (*model.GroupData, error) {
	o, err := s.session.RefreshGroup(ctx).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh group: %w", err)
	}
	if o.Value == nil {
		if o.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstream, o.Err)
		}
		return nil, ErrUpstream
	}

	mark := s.presenter.Mark()
	events, err := s.session.RecentEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.presenter.Reload(mark, events)
	return o.Value, nil
}

type feedResponse struct {
	Events []model.GameEvent `json:"events"`
	Count  int               `json:"count"`
}

// handleFeed handles GET /v1/feed requests.
func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	events := s.presenter.Events()
	writeJSON(w, http.StatusOK, feedResponse{Events: events, Count: len(events)})
}

// handleStream handles GET /v1/feed/ws requests.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.presenter.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		s.logger.Warn(r.Context(), "feed stream upgrade failed", logger.Error(err))
		return
	}
	s.presenter.join(conn)
}

// handleRecent handles GET /v1/events/recent requests.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	events, err := s.session.RecentEvents(r.Context())
	if err != nil {
		s.unavailable(w, r, "api.recent_events", err)
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{Events: events, Count: len(events)})
}

// handleGroup handles GET /v1/group requests.
func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	const op = "api.group"
	g, err := s.session.GroupData(r.Context())
	if err != nil {
		s.unavailable(w, r, op, err)
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: no group data loaded", op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleRefresh handles POST /v1/group/refresh requests.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.group_refresh"
	g, err := s.Refresh(r.Context())
	switch {
	case errors.Is(err, ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream", fmt.Errorf("%s: %w", op, err))
	case err != nil:
		s.unavailable(w, r, op, err)
	default:
		writeJSON(w, http.StatusOK, g)
	}
}

// handleBingo handles GET /v1/bingo requests.
func (s *Server) handleBingo(w http.ResponseWriter, r *http.Request) {
	const op = "api.bingo"
	b, err := s.session.BingoBoard(r.Context())
	if err != nil {
		s.unavailable(w, r, op, err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: no bingo board loaded", op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleTaxonomy handles GET /v1/taxonomy requests.
func (s *Server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Taxonomy())
}

func (s *Server) unavailable(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Warn(r.Context(), "session unavailable", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
