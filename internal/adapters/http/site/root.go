// Package site serves the embedded live feed viewer.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("feed viewer serve failed")
)

// Register attaches the feed viewer to the root of mux. API routes registered
// on more specific patterns take precedence.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
