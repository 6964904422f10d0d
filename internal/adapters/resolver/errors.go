package resolver

import "errors"

// Sentinel errors for a tier that produced nothing usable.
var (
	ErrNoDownloader      = errors.New("no downloader configured")
	ErrRemoteUnavailable = errors.New("remote config unavailable")
	ErrParse             = errors.New("parse milestone config")
	ErrEmptyTaxonomy     = errors.New("milestone config is empty")
)
