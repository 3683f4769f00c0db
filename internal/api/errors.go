package api

import (
	"errors"
	"net/http"
)

// Error is a structured API failure: HTTP status plus the machine-readable
// code and message the backend returns in its error envelope.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return "api: " + e.Message + " (" + e.Code + ")"
	}
	return "api: " + e.Message
}

// IsTransient reports whether err is the kind of failure the offline layer
// recovers from locally: transport errors, timeouts, throttling, 5xx. These
// never surface to read paths; they trigger the mirror/cache fallback.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return apiErr.Status >= 500
	}
	// Anything that never produced an HTTP status: DNS failure, refused
	// connection, client timeout, cancelled context.
	return true
}

// IsConflict reports a sync conflict: the server rejected a queued write
// because the underlying resource changed concurrently. Distinct from plain
// failure so callers prompt for reconciliation instead of retrying blindly.
func IsConflict(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// IsValidation reports a validation or business-rule rejection (4xx other
// than timeout/throttle/conflict). These must propagate to the caller: a
// malformed payload will never succeed, so queueing it would be a bug.
func IsValidation(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusConflict:
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}
