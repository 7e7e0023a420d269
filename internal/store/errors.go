package store

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Error represents a structured failure response from the document store.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("store: %d: %s", e.StatusCode, e.Message)
}

// Backoff reports the server-dictated wait before the call may be retried.
// It returns false for statuses the service treats as terminal.
func (e *Error) Backoff() (time.Duration, bool) {
	switch e.StatusCode {
	case http.StatusTooManyRequests, statusRetryWith, http.StatusServiceUnavailable:
		return e.RetryAfter, true
	}
	return 0, false
}

// statusRetryWith is the store's "retry the exact same request" status.
const statusRetryWith = 449

// newError builds an Error from a non-2xx response. The retry-after interval
// comes from the response header; code and message from the JSON error body.
func newError(statusCode int, header http.Header, body []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		Code:       gjson.GetBytes(body, "code").String(),
		Message:    gjson.GetBytes(body, "message").String(),
	}
	if e.Message == "" {
		e.Message = http.StatusText(statusCode)
	}
	if raw := header.Get(headerRetryAfterMS); raw != "" {
		if ms, err := strconv.ParseFloat(raw, 64); err == nil && ms > 0 {
			e.RetryAfter = time.Duration(ms * float64(time.Millisecond))
		}
	}
	return e
}

// IsStatus reports whether err is a store Error with the given status code.
func IsStatus(err error, statusCode int) bool {
	var se *Error
	return errors.As(err, &se) && se.StatusCode == statusCode
}
