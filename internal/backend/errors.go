package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error markers. Returned errors match these with errors.Is.
var (
	ErrTransport       = errors.New("backend unreachable")
	ErrRateLimited     = errors.New("rate limited")
	ErrValidation      = errors.New("request rejected")
	ErrServer          = errors.New("backend error")
	ErrItemFailed      = errors.New("item failed")
	ErrVersionMismatch = errors.New("backend version too old")
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Route      string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Route, e.Message, e.StatusCode)
}

// Unwrap maps the status code onto an error marker.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		if looksRateLimited(e.Message) {
			return ErrRateLimited
		}
		return ErrServer
	case e.StatusCode >= http.StatusBadRequest:
		return ErrValidation
	default:
		return nil
	}
}

// ItemError is a per-item failure inside an otherwise successful batch response.
type ItemError struct {
	Index   int
	Message string
}

func (e *ItemError) Error() string {
	return e.Message
}

// Unwrap matches ErrItemFailed, and ErrRateLimited when the provider reported quota
// or throttling trouble.
func (e *ItemError) Unwrap() []error {
	if looksRateLimited(e.Message) {
		return []error{ErrItemFailed, ErrRateLimited}
	}
	return []error{ErrItemFailed}
}

var rateLimitHints = []string{
	"rate limit",
	"too many requests",
	"quota",
	"unusual_activity",
	"余额不足",
}

func looksRateLimited(msg string) bool {
	lower := strings.ToLower(msg)
	for _, hint := range rateLimitHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Class groups errors by what a caller should do about them.
type Class string

// Error classes.
const (
	ClassNone        Class = ""
	ClassTransport   Class = "transport"
	ClassRateLimited Class = "rate_limited"
	ClassValidation  Class = "validation"
	ClassServer      Class = "server"
	ClassItem        Class = "item"
	ClassUnknown     Class = "unknown"
)

// Classify returns the class of err. Rate limiting wins over the other markers.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrTransport):
		return ClassTransport
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrServer):
		return ClassServer
	case errors.Is(err, ErrItemFailed):
		return ClassItem
	default:
		return ClassUnknown
	}
}

// Retryable reports whether repeating the same request could succeed.
func Retryable(err error) bool {
	switch Classify(err) { //nolint:exhaustive // remaining classes are permanent.
	case ClassTransport, ClassRateLimited, ClassServer, ClassItem:
		return true
	default:
		return false
	}
}
