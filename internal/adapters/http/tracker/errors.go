package tracker

import "errors"

// Sentinel errors carried in failed outcomes.
var (
	ErrNoExecutor       = errors.New("tracker: executor is required")
	ErrRejected         = errors.New("tracker: request rejected by executor")
	ErrInvalidURL       = errors.New("tracker: invalid url")
	ErrTransport        = errors.New("tracker: transport failure")
	ErrUnexpectedStatus = errors.New("tracker: unexpected status")
	ErrDecode           = errors.New("tracker: decode response")
	ErrEncode           = errors.New("tracker: encode request")
)
