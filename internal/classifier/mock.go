package classifier

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"sync"
	"time"
)

// defaultMockCompletion is a plausible classifier completion so the daemon
// can run end-to-end without an API key (dev mode, demos, extension work).
const defaultMockCompletion = `{"segments":[` +
	`{"start":0,"end":25,"category":"sponsor","confidence":0.95,"description":"sponsored message"},` +
	`{"start":280,"end":300,"category":"outro","confidence":0.9,"description":"closing remarks"}]}`

// MockProvider satisfies the provider contract without network traffic.
// It counts calls and can be primed with a response, an error, or a delay,
// which is what the in-flight-guard and timeout tests need.
type MockProvider struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
	delay    time.Duration
}

// NewMockProvider creates a mock that returns a canned sponsor/outro pair.
func NewMockProvider() *MockProvider {
	return &MockProvider{response: defaultMockCompletion}
}

// SetResponse primes the completion returned by ParseResponse.
func (p *MockProvider) SetResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = response
}

// SetError forces SendRequest to fail.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// SetDelay makes SendRequest block, honoring context cancellation.
func (p *MockProvider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Calls reports how many times SendRequest ran.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// CreatePayload marshals the request so tests can inspect the prompt.
func (p *MockProvider) CreatePayload(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal mock request: %w", err)
	}
	return data, nil
}

// SendRequest counts the call, waits out any configured delay, and echoes
// the payload back as the response body.
func (p *MockProvider) SendRequest(ctx context.Context, payload []byte) ([]byte, error) {
	p.mu.Lock()
	p.calls++
	delay := p.delay
	err := p.err
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ParseResponse returns the primed completion.
func (p *MockProvider) ParseResponse(_ []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response, nil
}

// ValidateKey accepts anything; the mock needs no credentials.
func (p *MockProvider) ValidateKey(_ string) error {
	return nil
}
