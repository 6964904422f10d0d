package testevents

import (
	"context"
	"fmt"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/pkg/logger"
)

// verifyResults compares the events recorded during the replay with the
// script's expectations. The daemon keeps only the newest events, so
// comparisons are capped at its feed capacity.
func verifyResults(ctx context.Context, config *Config, before map[string]struct{}, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	recent, err := fetchEvents(ctx, config, "/v1/events/recent")
	if err != nil {
		return fmt.Errorf("failed to fetch recent events: %w", err)
	}
	fresh := newEvents(recent.Events, before)
	stats.EventsObserved = len(fresh)
	for _, ev := range fresh {
		stats.ObservedByKind[ev.Kind]++
	}

	display, err := fetchEvents(ctx, config, "/v1/feed")
	if err != nil {
		return fmt.Errorf("failed to fetch display feed: %w", err)
	}
	if display.Count != len(display.Events) {
		return fmt.Errorf("display feed count %d does not match %d listed events", display.Count, len(display.Events))
	}

	if err := compareCounts(stats.EventsExpected, stats.ExpectedByKind, fresh); err != nil {
		return err
	}

	logger.Get().Info(ctx, "result verification completed",
		logger.Int("observed", stats.EventsObserved),
		logger.Int("displayed", display.Count))
	return nil
}

// newEvents returns the events whose ids were not present before the replay.
func newEvents(events []model.GameEvent, before map[string]struct{}) []model.GameEvent {
	var out []model.GameEvent
	for _, ev := range events {
		if _, seen := before[ev.ID]; !seen {
			out = append(out, ev)
		}
	}
	return out
}

// compareCounts checks the observed events against the expected totals.
// When more events were expected than the engine feed holds, only the total
// is checked since older events have been evicted.
func compareCounts(expected int, byKind map[model.EventKind]int, observed []model.GameEvent) error {
	if expected > engineFeedCapacity {
		if len(observed) != engineFeedCapacity {
			return fmt.Errorf("expected a full feed of %d new events, observed %d", engineFeedCapacity, len(observed))
		}
		return nil
	}
	if len(observed) != expected {
		return fmt.Errorf("expected %d new events, observed %d", expected, len(observed))
	}

	got := make(map[model.EventKind]int)
	for _, ev := range observed {
		got[ev.Kind]++
	}
	for kind, want := range byKind {
		if got[kind] != want {
			return fmt.Errorf("expected %d %s events, observed %d", want, kind, got[kind])
		}
	}
	return nil
}
