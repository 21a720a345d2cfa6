package crawler

import "errors"

// Crawl errors.
var (
	// ErrSessionLost is returned when a fetched page shows the logged-out
	// chrome (the connect icon without the disconnect icon). Every
	// subsequent fetch would render the public shell, so the crawl stops
	// instead of silently mirroring empty listings.
	ErrSessionLost = errors.New("crawler: portal session lost")
)
