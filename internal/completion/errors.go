package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/sony/gobreaker"
)

// errInvalidResponse marks a 200 response that could not be turned into an answer.
var errInvalidResponse = errors.New("invalid response")

// StatusError is a non-200 response from the completion endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion api status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying: throttling, server
// errors and transport failures.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// isCallerFault reports client-side errors that say nothing about endpoint health.
func isCallerFault(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// classify turns a call error into the Failure reported to callers.
func classify(err error) *Failure {
	f := &Failure{Kind: KindUnknown, Message: err.Error()}

	var se *StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		f.Kind = KindCircuitOpen
		f.Message = "completion endpoint temporarily unavailable: " + err.Error()
	case errors.Is(err, context.Canceled):
		f.Kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		f.Kind = KindTimeout
	case errors.As(err, &se):
		f.StatusCode = se.StatusCode
		f.Message = se.Message
		switch {
		case se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden:
			f.Kind = KindAuth
		case se.StatusCode == http.StatusTooManyRequests:
			f.Kind = KindRateLimit
		case se.StatusCode >= 500:
			f.Kind = KindUpstream
		default:
			f.Kind = KindBadRequest
		}
	case errors.Is(err, errInvalidResponse):
		f.Kind = KindInvalidResponse
	default:
		var ue *url.Error
		if errors.As(err, &ue) {
			f.Kind = KindNetwork
			if ue.Timeout() {
				f.Kind = KindTimeout
			}
		}
	}
	return f
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
