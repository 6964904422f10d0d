package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/irontrials/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[model.GameEvent](WithCapacity(2), WithName("basic"))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, model.GameEvent{ID: "event1", Kind: model.KindLevelUp}) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	ev := <-q.Dequeue(ctx)
	if ev.ID != "event1" {
		t.Errorf("expected event1, got %v", ev.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Name() != "basic" || q.Cap() != 2 {
		t.Errorf("unexpected name/cap %q/%d", q.Name(), q.Cap())
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, 1) || !q.Enqueue(ctx, 2) {
		t.Fatal("expected enqueue to succeed")
	}

	if err := q.TryEnqueue(ctx, 3); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.TryEnqueue(ctx, 1)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 5; i++ {
		q.Enqueue(ctx, fmt.Sprintf("task-%d", i))
	}

	out := q.Dequeue(ctx)
	for i := 0; i < 5; i++ {
		if got := <-out; got != fmt.Sprintf("task-%d", i) {
			t.Fatalf("expected task-%d, got %s", i, got)
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	numGoroutines := 10
	numItems := 100

	var producers sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for j := 0; j < numItems; j++ {
				for !q.Enqueue(ctx, fmt.Sprintf("item%d_%d", id, j)) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	consumed := make(chan string, numGoroutines*numItems)
	out := q.Dequeue(ctx)
	go func() {
		for item := range out {
			consumed <- item
		}
	}()

	producers.Wait()

	deadline := time.After(2 * time.Second)
	for len(consumed) < numGoroutines*numItems {
		select {
		case <-deadline:
			t.Fatalf("expected %d items, consumed %d", numGoroutines*numItems, len(consumed))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, 1) || !q.Enqueue(ctx, 2) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.TryEnqueue(ctx, 3); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// queued items drain before the channel closes
	var drained []int
	timeout := time.After(100 * time.Millisecond)
	out := q.Dequeue(ctx)
	for {
		select {
		case item, ok := <-out:
			if !ok {
				if len(drained) != 2 {
					t.Errorf("expected 2 drained items, got %v", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained = append(drained, item)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}

func TestInMemoryQueue_EnqueueWait(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.EnqueueWait(ctx, 1); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	short, stop := context.WithTimeout(ctx, 10*time.Millisecond)
	err := q.EnqueueWait(short, 2)
	stop()
	if !errors.Is(err, ErrFull) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected ErrFull after the deadline, got %v", err)
	}

	out := q.Dequeue(ctx)
	done := make(chan error, 1)
	go func() { done <- q.EnqueueWait(ctx, 3) }()

	if got := <-out; got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected waiting enqueue to succeed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected waiting enqueue to complete once space freed")
	}
	if got := <-out; got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}
