package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("session unavailable")
	ErrUpstream          = errors.New("tracking backend unavailable")
	ErrHijackUnsupported = errors.New("response writer does not support hijacking")
)
