package app

import (
	"time"

	"github.com/okian/irontrials/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithControlQueueSize sets the capacity of the control queue.
func WithControlQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHostWait sets how long host input waits for control queue space
// before it is dropped.
func WithHostWait(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.hostWait = d
		}
	}
}

// WithClock sets the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the function that assigns event ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(logger logger.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
