package queue

import "errors"

// Sentinel errors returned by TryEnqueue.
var (
	ErrClosed    = errors.New("queue closed")
	ErrFull      = errors.New("queue full")
	ErrCancelled = errors.New("enqueue cancelled")
)
