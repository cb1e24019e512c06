package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrHistoryNotFound is returned by GetHistory for an unknown id.
var ErrHistoryNotFound = errors.New("history record not found")

// ConnKind classifies transport failures for the connection screen.
type ConnKind string

const (
	ConnRefused ConnKind = "refused"
	ConnTimeout ConnKind = "timeout"
	ConnGeneric ConnKind = "generic"
)

// ConnError is a failure to complete the round trip at all.
type ConnError struct {
	Kind    ConnKind
	BaseURL string
	Err     error
}

func (e *ConnError) Error() string {
	switch e.Kind {
	case ConnRefused:
		return fmt.Sprintf("cannot connect to backend at %s, make sure the server is running: %v", e.BaseURL, e.Err)
	case ConnTimeout:
		return fmt.Sprintf("connection to backend at %s timed out: %v", e.BaseURL, e.Err)
	default:
		return fmt.Sprintf("network error talking to backend at %s: %v", e.BaseURL, e.Err)
	}
}

func (e *ConnError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Detail)
}

func classifyTransport(baseURL string, err error) *ConnError {
	kind := ConnGeneric

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ConnTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ConnRefused
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		kind = ConnRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ConnTimeout
	}

	return &ConnError{Kind: kind, BaseURL: baseURL, Err: err}
}

// detailFromBody pulls the human readable message out of an error body.
// FastAPI style {"detail": "..."} and {"detail": [{"msg": ...}]} are understood,
// anything else is returned trimmed.
func detailFromBody(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			var items []struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
				msgs := make([]string, 0, len(items))
				for _, it := range items {
					msgs = append(msgs, it.Msg)
				}
				return strings.Join(msgs, "; ")
			}
			return string(payload.Detail)
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	return text
}
