package api

import "fmt"

// FetchError reports a failed or unusable response from the remote API.
// It is always retryable from the caller's point of view.
type FetchError struct {
	Op         string // "timings" or "qibla"
	StatusCode int    // HTTP or API status code when one was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
