package resolver

import "github.com/okian/irontrials/pkg/logger"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithHomeDir replaces the lookup used to expand a leading "~".
func WithHomeDir(fn func() (string, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.homeDir = fn
		}
	}
}

// WithLogger sets a custom logger for the resolver.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
