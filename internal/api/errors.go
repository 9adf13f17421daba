package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NetworkError wraps a transport-level failure: DNS resolution,
// connection refused, a dropped socket. No HTTP response was classified.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError indicates the request exceeded its deadline and the
// in-flight call was aborted.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response other than an authentication failure.
// Detail carries the backend's "detail" message when the error body
// provided one, or a generic status-based message otherwise.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Detail)
}

// AuthenticationError is a 401 that could not be recovered: either no
// token was present, or the single refresh-and-retry attempt was
// exhausted. It is the only error kind with a mandated side effect: the
// session manager clears local state and redirects to login.
type AuthenticationError struct {
	Detail string
}

func (e *AuthenticationError) Error() string {
	if e.Detail == "" {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %s", e.Detail)
}

// ValidationError reports malformed caller input, surfaced before any
// network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// errorDetail extracts the backend's detail message from a non-2xx
// response body. Absent or malformed bodies degrade to the standard
// status text.
func errorDetail(status int, body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}

	text := http.StatusText(status)
	if text == "" {
		text = "request failed"
	}
	return text
}
