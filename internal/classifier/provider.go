// Package classifier turns video transcripts into validated skip-segment
// candidates using an LLM backend. Providers are interchangeable behind a
// four-method contract; everything above the provider (prompting, timeouts,
// rate limiting, response validation) is shared.
package classifier

import (
	"context"
)

// Request carries everything a provider needs for one classification call.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Provider is the pluggable classifier backend contract.
// Adding a backend means adding one implementation, not branching logic:
// CreatePayload shapes the vendor request body, SendRequest executes it,
// ParseResponse reduces the vendor envelope to the single completion string,
// and ValidateKey rejects malformed credentials before any network call.
type Provider interface {
	CreatePayload(req Request) ([]byte, error)
	SendRequest(ctx context.Context, payload []byte) ([]byte, error)
	ParseResponse(body []byte) (string, error)
	ValidateKey(key string) error
}
