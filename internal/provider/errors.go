package provider

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Class categorizes a provider failure for the retry controller.
type Class string

// Failure classes.
const (
	// ClassRateLimited is a provider throttling signal.
	ClassRateLimited Class = "rate_limited"
	// ClassTransient covers timeouts, network errors and overloaded upstreams.
	ClassTransient Class = "transient"
	// ClassTerminal covers bad requests, unknown models, auth failures and malformed responses.
	ClassTerminal Class = "terminal"
)

// Error is a classified provider failure.
type Error struct {
	Provider   string
	StatusCode int
	Class      Class
	// RetryAfter is an explicit delay from the response headers.
	RetryAfter time.Duration
	// Hint is a delay extracted from the response body.
	Hint    time.Duration
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provider %s: %s", e.Provider, e.Class)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may succeed on a later attempt.
func (e *Error) Retryable() bool {
	return e.Class == ClassRateLimited || e.Class == ClassTransient
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classifyStatus maps an HTTP status onto a failure class.
func classifyStatus(status int) Class {
	switch status {
	case http.StatusTooManyRequests:
		return ClassRateLimited
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout, 529:
		return ClassTransient
	default:
		return ClassTerminal
	}
}

// newHTTPError builds a classified error for a non-2xx response.
func newHTTPError(status int, header http.Header, body []byte, message string) *Error {
	if message == "" {
		message = truncate(string(body), 300)
	}
	return &Error{
		StatusCode: status,
		Class:      classifyStatus(status),
		RetryAfter: parseRetryAfter(header, time.Now()),
		Hint:       parseBodyHint(body),
		Message:    message,
	}
}

// parseRetryAfter reads retry-after-ms or Retry-After (delta seconds or HTTP date).
func parseRetryAfter(header http.Header, now time.Time) time.Duration {
	if header == nil {
		return 0
	}
	if v := header.Get("Retry-After-Ms"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

var (
	retryDelayField = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+(?:\.\d+)?)s"`)
	retryAfterField = regexp.MustCompile(`"retry_after"\s*:\s*(\d+(?:\.\d+)?)`)
	retryPhrase     = regexp.MustCompile(`(?i)(?:try again|retry) (?:in|after) (\d+(?:\.\d+)?)\s*(ms|milliseconds?|s|secs?|seconds?)?\b`)
)

// parseBodyHint extracts a numeric retry delay from a provider error body.
func parseBodyHint(body []byte) time.Duration {
	if len(body) == 0 {
		return 0
	}
	if m := retryDelayField.FindSubmatch(body); m != nil {
		return seconds(string(m[1]))
	}
	if m := retryAfterField.FindSubmatch(body); m != nil {
		return seconds(string(m[1]))
	}
	if m := retryPhrase.FindSubmatch(body); m != nil {
		unit := strings.ToLower(string(m[2]))
		if strings.HasPrefix(unit, "ms") || strings.HasPrefix(unit, "milli") {
			v, err := strconv.ParseFloat(string(m[1]), 64)
			if err != nil {
				return 0
			}
			return time.Duration(v * float64(time.Millisecond))
		}
		return seconds(string(m[1]))
	}
	return 0
}

func seconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
