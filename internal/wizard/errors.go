package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
)

// Kind groups wizard failures by how the user recovers from them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation means the input was rejected before any network call.
	KindValidation
	// KindOutOfOrder means the handler is not allowed in the current step.
	KindOutOfOrder
	// KindBusy means another operation is still running.
	KindBusy
	// KindConnectivity means the backend could not be reached.
	KindConnectivity
	// KindBackend means the backend answered with an error.
	KindBackend
	// KindOverload means the backend is overloaded or timed out; wait and retry.
	KindOverload
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindValidation:   "validation",
	KindOutOfOrder:   "out_of_order",
	KindBusy:         "busy",
	KindConnectivity: "connectivity",
	KindBackend:      "backend",
	KindOverload:     "overload",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

const overloadMessage = "the interview service is overloaded or timed out, wait a moment and retry"

var overloadPatterns = []string{
	"overload",
	"timeout",
	"timed out",
	"deadline exceeded",
	"unavailable",
	"resource exhausted",
	"rate limit",
}

// overloadCodes matches status codes quoted in text, not digits inside a
// larger number such as a price or a port.
var overloadCodes = regexp.MustCompile(`\b(?:429|503)\b`)

func overloadStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ErrBusy is returned when a handler is called while another one runs.
var ErrBusy = errors.New("another operation is in progress")

// Error is returned by every controller handler.
type Error struct {
	Kind Kind
	// Op is the user-facing name of the operation, e.g. "generate analysis".
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindOverload {
		return fmt.Sprintf("%s failed: %s", e.Op, overloadMessage)
	}
	if e.Err == nil {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, or KindUnknown if err is not a wizard error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnknown
}

// IsOverload reports whether text looks like an overload or timeout failure.
func IsOverload(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range overloadPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return overloadCodes.MatchString(text)
}

// Classify wraps a failed backend call. A transport timeout, an overload
// status or an overload detail from the backend all get the wait-and-retry
// message. Only the backend detail is searched for overload text, since the
// rest of the message carries the base URL.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return we
	}

	kind := KindBackend
	var connErr *backend.ConnError
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &connErr):
		kind = KindConnectivity
		if connErr.Kind == backend.ConnTimeout || errors.Is(err, context.DeadlineExceeded) {
			kind = KindOverload
		}
	case errors.As(err, &apiErr):
		if overloadStatus(apiErr.StatusCode) || IsOverload(apiErr.Detail) {
			kind = KindOverload
		}
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindOverload
	case errors.Is(err, context.Canceled):
		kind = KindConnectivity
	case IsOverload(err.Error()):
		kind = KindOverload
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func invalid(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func outOfOrder(op string, step Step) *Error {
	return &Error{Kind: KindOutOfOrder, Op: op, Err: fmt.Errorf("not allowed at step %s", step)}
}
