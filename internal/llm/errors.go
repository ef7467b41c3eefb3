package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"google.golang.org/api/googleapi"
)

// Kind classifies relay failures for callers that map them to responses.
type Kind int

const (
	KindFailure Kind = iota
	KindRateLimited
	KindInvalidCredential
	KindModelUnavailable
	KindPermissionDenied
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "failure"
	}
}

// Error is returned by every Relay failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindFailure when err is not an *Error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindFailure
}

var (
	rateLimitReasons  = []string{"RESOURCE_EXHAUSTED", "RATE_LIMIT_EXCEEDED", "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded"}
	credentialReasons = []string{"UNAUTHENTICATED", "API_KEY_INVALID", "API_KEY_EXPIRED", "keyInvalid", "authError"}
)

// classify maps a transport or API error onto a Kind using the status code,
// the canonical error.status and the structured reasons of *googleapi.Error.
func classify(err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindModelUnavailable, Message: "model call timed out", Err: err}
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &Error{Kind: KindFailure, Message: "model call failed", Err: err}
	}

	reasons := errorReasons(gerr)
	hasReason := func(want []string) bool {
		return slices.ContainsFunc(reasons, func(r string) bool { return slices.Contains(want, r) })
	}

	switch {
	case gerr.Code == http.StatusTooManyRequests || hasReason(rateLimitReasons):
		return &Error{Kind: KindRateLimited, Message: "model rate limit reached", Err: err}
	case gerr.Code == http.StatusUnauthorized || hasReason(credentialReasons):
		return &Error{Kind: KindInvalidCredential, Message: "model API key rejected", Err: err}
	case gerr.Code == http.StatusForbidden:
		return &Error{Kind: KindPermissionDenied, Message: "model access denied", Err: err}
	case gerr.Code == http.StatusNotFound || gerr.Code == http.StatusServiceUnavailable:
		return &Error{Kind: KindModelUnavailable, Message: "model unavailable", Err: err}
	}
	return &Error{Kind: KindFailure, Message: "model call failed", Err: err}
}

// errorReasons collects error.status, legacy ErrorItem reasons and
// google.rpc.ErrorInfo reasons from the details array.
func errorReasons(gerr *googleapi.Error) []string {
	var reasons []string
	if status := errorStatus(gerr.Body); status != "" {
		reasons = append(reasons, status)
	}
	for _, item := range gerr.Errors {
		if item.Reason != "" {
			reasons = append(reasons, item.Reason)
		}
	}
	for _, d := range gerr.Details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if r, ok := m["reason"].(string); ok && r != "" {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// errorStatus reads error.status, which googleapi.Error does not decode.
func errorStatus(body string) string {
	var env struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &env) != nil {
		return ""
	}
	return env.Error.Status
}
