// Package generation drives approved candidates through a Content
// Provider capability, handling retry, backoff, provider fallback and
// duplicate suppression, and advances per-card status.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// SentinelName marks the retry-exhausted result rendered as a failed
// card so the user can inspect and retry it instead of losing it.
const SentinelName = "Error"

// Request carries one card's image and surrounding context.
type Request struct {
	PNG      []byte
	Context  string
	Language string
}

// Result is the provider's judgment: a name and description for the
// depicted object, and whether the image is a meaningful figure at
// all.
type Result struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsValid     bool   `json:"isValid"`
}

// Provider is the single capability the pipeline dispatches through;
// the pipeline never branches on provider identity.
type Provider interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// AuthError is fatal per call: no retry, no fallback.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider rejected credentials: %s", e.Message)
}

// MalformedResponseError wraps a response from which no JSON could be
// recovered.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("no parseable JSON in provider response: %.120s", e.Raw)
}

// IsTransient classifies rate-limit / quota / service-unavailable
// signals worth an automatic retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code == 503
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "503", "rate limit", "quota", "resource exhausted", "unavailable", "overloaded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
