package agentapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/imagechat/internal/reliability"
)

// StatusError reports a non-200 answer from the agent host. Body holds the
// host's response text, truncated.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: agent host status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: agent host status %d: %s", e.Op, e.StatusCode, body)
}

// Retryable reports whether a manual retry has a chance to succeed.
func (e *StatusError) Retryable() bool {
	return reliability.IsRetryableHTTPStatus(e.StatusCode)
}

// Classify maps an error from a Host call to a short metrics label.
func Classify(err error) string {
	if err == nil {
		return "ok"
	}
	var se *StatusError
	if errors.As(err, &se) {
		return reliability.ClassifyHTTPStatus(se.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unreachable"
}

// Detail returns the text shown to a user for a failed call: the host body for
// status errors, the error string otherwise.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		if body := strings.TrimSpace(se.Body); body != "" {
			return body
		}
		return fmt.Sprintf("status %d", se.StatusCode)
	}
	return err.Error()
}

// IsRetryable reports whether repeating the failed call may succeed.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	switch Classify(err) {
	case "timeout", "unreachable":
		return true
	default:
		return false
	}
}
