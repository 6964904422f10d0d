package api

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/okian/irontrials/internal/domain/feed"
	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/pkg/metrics"
)

const displayFeedName = "display"

// Presenter holds the display feed shown to viewers. It is fed from the
// session's event notifications and reloaded from the engine feed on each
// refresh.
type Presenter struct {
	mu     sync.RWMutex
	feed   *feed.Feed
	stream *Stream

	// seq counts Add calls; added keeps the newest adds, oldest first, so a
	// reload can replay the ones that landed after its snapshot was taken.
	seq   uint64
	added []stampedEvent
}

type stampedEvent struct {
	seq uint64
	ev  model.GameEvent
}

// NewPresenter creates a display feed holding at most capacity events.
// stream may be nil.
func NewPresenter(capacity int, stream *Stream) *Presenter {
	return &Presenter{feed: feed.New(capacity), stream: stream}
}

// Add pushes ev to the front of the display feed and streams it.
func (p *Presenter) Add(ev model.GameEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feed.Push(ev)
	p.seq++
	p.added = append(p.added, stampedEvent{seq: p.seq, ev: ev})
	if over := len(p.added) - p.feed.Cap(); over > 0 {
		p.added = append(p.added[:0], p.added[over:]...)
	}
	metrics.UpdateFeedSize(displayFeedName, p.feed.Len())
	if p.stream != nil {
		p.stream.Broadcast(ev)
	}
}

// Mark returns a position to pass to Reload. Take it before reading the
// snapshot the feed is reloaded from.
func (p *Presenter) Mark() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seq
}

// Reload replaces the display feed with events, given newest first. Events
// added after mark that the snapshot does not contain stay on top. Only the
// newest events that fit are kept.
func (p *Presenter) Reload(mark uint64, events []model.GameEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feed = feed.New(p.feed.Cap())
	inSnapshot := make(map[string]struct{}, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		p.feed.Push(events[i])
		inSnapshot[events[i].ID] = struct{}{}
	}
	for _, a := range p.added {
		if a.seq <= mark {
			continue
		}
		if _, ok := inSnapshot[a.ev.ID]; !ok {
			p.feed.Push(a.ev)
		}
	}
	metrics.UpdateFeedSize(displayFeedName, p.feed.Len())
	if p.stream != nil {
		p.stream.BroadcastSnapshot(p.feed.Snapshot())
	}
}

// Events returns the display feed, newest first.
func (p *Presenter) Events() []model.GameEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feed.Snapshot()
}

// join attaches conn to the stream with the current feed as its snapshot.
// The lock keeps a concurrent Add from slipping between the two.
func (p *Presenter) join(conn *websocket.Conn) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.stream.Join(conn, p.feed.Snapshot())
}
