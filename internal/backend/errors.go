package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// The gateway normalizes every failure into one of three error types so the
// API layer can turn any of them into a plain message string. Raw transport
// errors never reach a handler.

// NetworkError wraps a transport-level failure (DNS, refused connection,
// timeout, canceled request).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the backend. Message carries the
// server-supplied detail verbatim when the body had one.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// ValidationError rejects bad input client-side, before any request is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// errorFromResponse builds an HTTPError from a non-2xx response, preferring
// the backend's human-readable `detail` or `error` body field.
func errorFromResponse(resp *http.Response) *HTTPError {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return httpErr
	}

	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			httpErr.Message = payload.Detail
		} else if payload.Error != "" {
			httpErr.Message = payload.Error
		}
	}
	return httpErr
}
