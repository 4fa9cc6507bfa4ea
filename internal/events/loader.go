package events

import "time"

// LoaderBatch is emitted after a loader fetched one batch of keys.
type LoaderBatch struct {
	Loader   string
	Keys     int
	Duration time.Duration
	Err      error
}
