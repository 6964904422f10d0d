// Package app provides the session controller that owns the tracker's
// mutable state and runs the capture → classify → buffer → sync pipeline.
//
// Every state mutation runs on a single control goroutine that drains the
// session's control queue. Host callbacks, network continuations and readers
// all reach that state by posting tasks.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/irontrials/internal/adapters/mq/queue"
	"github.com/okian/irontrials/internal/config"
	"github.com/okian/irontrials/internal/domain/classify"
	"github.com/okian/irontrials/internal/domain/evaluator"
	"github.com/okian/irontrials/internal/domain/feed"
	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/pkg/future"
	"github.com/okian/irontrials/pkg/logger"
	"github.com/okian/irontrials/pkg/metrics"
)

// Default session configuration constants.
const (
	engineFeedCapacity      = 50
	defaultControlQueueSize = 1024
	controlQueueName        = "control"
	defaultHostWait         = 250 * time.Millisecond
	engineFeedName          = "engine"
)

// Host delivers raw game input to the session. Registration happens once,
// when the session is constructed.
type Host interface {
	OnRawChatLine(fn func(text string, typ model.MessageType))
	OnStatChanged(fn func(skill string, level, xp int))
}

// Tracker is the subset of the sync client the session needs.
type Tracker interface {
	FetchGroupData(ctx context.Context, serverURL, groupID string) *future.Future[*model.GroupData]
	SendEvent(ctx context.Context, serverURL, groupID string, ev model.GameEvent) *future.Future[bool]
	FetchBingoBoard(ctx context.Context, serverURL, groupID string) *future.Future[*model.BingoBoard]
}

// LastValues is implemented by trackers that keep the last good fetch per
// group. The session falls back to it before its own refresh has landed.
type LastValues interface {
	LastGroupData(groupID string) (*model.GroupData, bool)
	LastBingoBoard(groupID string) (*model.BingoBoard, bool)
}

type task func(ctx context.Context)

// Session is the per-run controller. Construct it with New, then Start it;
// Stop tears it down.
type Session struct {
	settings config.Settings
	tax      *taxonomy.Taxonomy
	tracker  Tracker

	// owned by the control goroutine
	evaluator *evaluator.Evaluator
	recent    *feed.Feed
	group     *model.GroupData
	bingo     *model.BingoBoard
	listeners []func(model.GameEvent)

	control   *queue.InMemoryQueue[task]
	queueSize int
	hostWait  time.Duration
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	started bool
	done    chan struct{}

	logger logger.Logger
}

// New creates a session over the resolved taxonomy. host may be nil when
// input is delivered by calling the handlers directly.
func New(settings *config.Settings, tax *taxonomy.Taxonomy, tracker Tracker, host Host, opts ...Option) *Session {
	s := &Session{
		settings:  *settings,
		tax:       tax,
		tracker:   tracker,
		recent:    feed.New(engineFeedCapacity),
		queueSize: defaultControlQueueSize,
		hostWait:  defaultHostWait,
		now:       time.Now,
		newID:     uuid.NewString,
		done:      make(chan struct{}),
	}
	if settings.ControlQueueSize > 0 {
		s.queueSize = settings.ControlQueueSize
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tax == nil {
		s.tax = taxonomy.Defaults()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	s.evaluator = evaluator.New(evaluator.WithClock(s.now))
	s.control = queue.NewInMemoryQueue[task](
		queue.WithName(controlQueueName),
		queue.WithCapacity(s.queueSize),
	)

	if host != nil {
		host.OnRawChatLine(s.HandleChatLine)
		host.OnStatChanged(s.HandleStatChanged)
	}
	return s
}

// OnEventEmitted registers fn to receive every recorded event. fn runs on the
// control goroutine and must not block. Listeners must be registered before
// Start.
func (s *Session) OnEventEmitted(fn func(model.GameEvent)) {
	s.listeners = append(s.listeners, fn)
}

// Start launches the control goroutine. It returns once the loop is running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	base := context.WithoutCancel(ctx)
	go s.loop(base, s.control.Dequeue(base))

	s.logger.Info(ctx, "session started",
		logger.String("group_id", s.settings.GroupID),
		logger.String("player_name", s.settings.PlayerName),
		logger.Int("control_queue_size", s.queueSize),
	)
	if s.settings.SeedDemoEvents {
		s.post(ctx, s.seedDemoEvents)
	}
	return nil
}

// Stop closes the control queue, lets queued tasks finish and waits for the
// control goroutine to exit or ctx to end.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	_ = s.control.Close()
	select {
	case <-s.done:
		s.logger.Info(ctx, "session stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session stop: %w", ctx.Err())
	}
}

// loop runs tasks one at a time until the control queue closes.
func (s *Session) loop(ctx context.Context, tasks <-chan task) {
	defer close(s.done)
	for t := range tasks {
		s.run(ctx, t)
	}
}

func (s *Session) run(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "control task panicked", logger.Any("panic", r))
		}
	}()
	t(ctx)
}

// post hands t to the control goroutine. It reports false when the queue is
// full or closed.
func (s *Session) post(ctx context.Context, t task) bool {
	if err := s.control.TryEnqueue(context.WithoutCancel(ctx), t); err != nil {
		s.logger.Warn(ctx, "control task dropped", logger.Error(err))
		return false
	}
	return true
}

// postInput hands host input to the control goroutine, waiting up to the
// host wait for queue space so a burst does not drop stat deltas.
func (s *Session) postInput(t task) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.hostWait)
	defer cancel()
	if err := s.control.EnqueueWait(ctx, t); err != nil {
		s.logger.Warn(ctx, "host input dropped", logger.Error(err))
		return false
	}
	return true
}

// Call runs fn on the control goroutine and waits for it to finish. It must
// not be called from a control task or an OnEventEmitted listener.
func (s *Session) Call(ctx context.Context, fn func()) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	finished := make(chan struct{})
	if err := s.control.TryEnqueue(ctx, func(context.Context) {
		defer close(finished)
		fn()
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		// the loop may have run the task just before exiting
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return fmt.Errorf("session call: %w", ctx.Err())
	}
}

// HandleChatLine is the host's chat callback. It is safe to call from any
// goroutine.
func (s *Session) HandleChatLine(text string, typ model.MessageType) {
	s.postInput(func(ctx context.Context) { s.onChatLine(ctx, text, typ) })
}

// HandleStatChanged is the host's stat callback. It is safe to call from any
// goroutine.
func (s *Session) HandleStatChanged(skill string, level, xp int) {
	s.postInput(func(ctx context.Context) { s.onStatChanged(ctx, skill, level, xp) })
}

func (s *Session) onChatLine(ctx context.Context, text string, typ model.MessageType) {
	if classify.IsTestCommand(text) {
		metrics.RecordFactClassified("test_command")
		s.testConnection(ctx)
		return
	}

	game := typ == model.MessageGame

	if s.settings.CaptureQuests && game {
		if name, ok := classify.QuestName(text); ok {
			metrics.RecordFactClassified("quest")
			if ev, ok := s.evaluator.OnQuestFact(name, s.tax); ok {
				s.record(ctx, ev)
			} else {
				metrics.RecordEventSkipped("quest_not_tracked")
			}
		}
	}

	if s.settings.CaptureBossKC && game {
		if name, kc, ok := classify.BossKill(text); ok {
			metrics.RecordFactClassified("boss_kill")
			switch ev, ok := s.evaluator.OnBossFact(name, kc, s.tax); {
			case !ok:
				metrics.RecordEventSkipped("boss_kill_count_missing")
			case s.settings.StrictBossKills && !s.tax.IsSignificantBossKill(name):
				metrics.RecordEventSkipped("boss_not_tracked")
			default:
				s.record(ctx, ev)
			}
		}
	}

	if s.settings.CaptureDrops && game {
		if item, ok := classify.ItemName(text); ok {
			metrics.RecordFactClassified("drop")
			if ev, ok := s.evaluator.OnDropFact(item, s.tax); ok {
				s.record(ctx, ev)
			} else {
				metrics.RecordEventSkipped("drop_not_rare")
			}
		}
	}

	if classify.IsDeath(text) {
		metrics.RecordFactClassified("death")
		s.record(ctx, s.evaluator.OnDeathFact())
	}
}

func (s *Session) onStatChanged(ctx context.Context, skill string, level, xp int) {
	if !s.settings.CaptureLevelUps {
		return
	}
	metrics.RecordFactClassified("stat")
	if ev, ok := s.evaluator.OnStatDelta(skill, level, xp, s.tax); ok {
		s.logger.Info(ctx, "milestone level up", logger.String("skill", skill), logger.Int("level", level))
		s.record(ctx, ev)
	}
}

// record stamps ev, buffers it, notifies listeners and sends it to the
// backend. Events are dropped when the backend is not configured.
func (s *Session) record(ctx context.Context, ev model.GameEvent) {
	if !s.settings.CanSync() {
		s.logger.Warn(ctx, "cannot send event: server url or group id not configured",
			logger.String("kind", string(ev.Kind)))
		metrics.RecordEventSkipped("not_configured")
		return
	}
	ev.ID = s.newID()
	ev.PlayerName = s.settings.PlayerName

	s.push(ctx, ev)

	kind, desc := ev.Kind, ev.Description
	s.tracker.SendEvent(ctx, s.settings.ServerURL, s.settings.GroupID, ev).Then(func(o future.Outcome[bool]) {
		if o.Value {
			s.logger.Info(ctx, "event sent", logger.String("kind", string(kind)), logger.String("description", desc))
			return
		}
		s.logger.Warn(ctx, "failed to send event", logger.String("kind", string(kind)), logger.String("description", desc))
	})
}

// push buffers ev in the engine feed and notifies listeners.
func (s *Session) push(ctx context.Context, ev model.GameEvent) {
	s.recent.Push(ev)
	metrics.RecordEventEmitted(string(ev.Kind))
	metrics.UpdateFeedSize(engineFeedName, s.recent.Len())
	s.logger.Debug(ctx, "event recorded", logger.String("id", ev.ID), logger.String("kind", string(ev.Kind)))
	for _, fn := range s.listeners {
		fn(ev)
	}
}

func (s *Session) testConnection(ctx context.Context) {
	s.logger.Info(ctx, "connection test requested")
	if !s.settings.CanSync() {
		s.logger.Warn(ctx, "connection test: configure server url and group id")
		return
	}
	s.logger.Info(ctx, "connection test: contacting backend", logger.String("server_url", s.settings.ServerURL))
	s.RefreshGroup(ctx).Then(func(o future.Outcome[*model.GroupData]) {
		if o.Value == nil {
			s.logger.Warn(ctx, "connection test: failed to load group data")
			return
		}
		s.logger.Info(ctx, "connection test: loaded group data", logger.String("group", o.Value.Name))
	})
}

// RefreshGroup fetches the group and stores it on the control goroutine.
// The returned future resolves with the fetch outcome; a nil value leaves
// the stored group untouched.
func (s *Session) RefreshGroup(ctx context.Context) *future.Future[*model.GroupData] {
	f := s.tracker.FetchGroupData(ctx, s.settings.ServerURL, s.settings.GroupID)
	f.Then(func(o future.Outcome[*model.GroupData]) {
		if o.Value == nil {
			return
		}
		s.post(ctx, func(context.Context) { s.group = o.Value })
	})
	return f
}

// RefreshBingo fetches the bingo board and stores it on the control
// goroutine.
func (s *Session) RefreshBingo(ctx context.Context) *future.Future[*model.BingoBoard] {
	f := s.tracker.FetchBingoBoard(ctx, s.settings.ServerURL, s.settings.GroupID)
	f.Then(func(o future.Outcome[*model.BingoBoard]) {
		if o.Value == nil {
			return
		}
		s.post(ctx, func(context.Context) { s.bingo = o.Value })
	})
	return f
}

// RecentEvents returns a copy of the engine feed, newest first.
func (s *Session) RecentEvents(ctx context.Context) ([]model.GameEvent, error) {
	var out []model.GameEvent
	err := s.Call(ctx, func() { out = s.recent.Snapshot() })
	return out, err
}

// GroupData returns the last stored group. When none is stored yet it
// falls back to the tracker's cached value; nil when neither has one.
func (s *Session) GroupData(ctx context.Context) (*model.GroupData, error) {
	var g *model.GroupData
	if err := s.Call(ctx, func() { g = s.group }); err != nil {
		return nil, err
	}
	if lv, ok := s.tracker.(LastValues); ok && g == nil {
		g, _ = lv.LastGroupData(s.settings.GroupID)
	}
	return g, nil
}

// BingoBoard returns the last stored bingo board, falling back to the
// tracker's cached value; nil when neither has one.
func (s *Session) BingoBoard(ctx context.Context) (*model.BingoBoard, error) {
	var b *model.BingoBoard
	if err := s.Call(ctx, func() { b = s.bingo }); err != nil {
		return nil, err
	}
	if lv, ok := s.tracker.(LastValues); ok && b == nil {
		b, _ = lv.LastBingoBoard(s.settings.GroupID)
	}
	return b, nil
}

// Taxonomy returns a copy of the milestone taxonomy in use.
func (s *Session) Taxonomy() *taxonomy.Taxonomy {
	return s.tax.Clone()
}

// Settings returns a copy of the session settings.
func (s *Session) Settings() config.Settings {
	return s.settings
}
