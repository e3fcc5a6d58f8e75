package classifier

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/ratelimit"
)

const (
	// DefaultTimeout bounds one classification call end to end. Timeouts
	// surface as a distinct error from transport failures so the UI can say
	// "took too long" instead of "unreachable".
	DefaultTimeout = 60 * time.Second

	// defaultMaxTokens caps the completion; segment lists are small.
	defaultMaxTokens = 2048

	// Classification calls are slow and paid for, so the outbound limit is
	// deliberately conservative: 1 call per 2s per provider, burst of 2.
	defaultRPS   = 0.5
	defaultBurst = 2
)

// Client runs classification calls against a single provider with shared
// rate limiting and a per-call timeout.
type Client struct {
	provider Provider
	name     string
	model    string
	timeout  time.Duration
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
}

// NewClient wires a client around an already-constructed provider.
// Most callers go through Factory.ClientFor instead.
func NewClient(name string, provider Provider, model string, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Client {
	return &Client{
		provider: provider,
		name:     name,
		model:    model,
		timeout:  DefaultTimeout,
		limiter:  limiter,
		logger:   logger,
	}
}

// ProviderName returns the provider this client is bound to.
func (c *Client) ProviderName() string { return c.name }

// Model returns the model identifier recorded in analysis metadata.
func (c *Client) Model() string { return c.model }

// Send pushes a prompt through the provider and returns the raw completion
// text. The call is rate limited per provider and bounded by the client
// timeout; an expired deadline maps to a classifier timeout error, anything
// else transport-shaped maps to a transport error.
func (c *Client) Send(ctx context.Context, prompt Prompt) (string, error) {
	if err := c.limiter.Wait(ctx, c.name); err != nil {
		return "", errors.ClassifierTransport("rate limit wait interrupted").WithCause(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := c.provider.CreatePayload(Request{
		Model:     c.model,
		System:    prompt.System,
		User:      prompt.User,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", errors.Internal("build classifier payload").WithCause(err)
	}

	started := time.Now()
	body, err := c.provider.SendRequest(callCtx, payload)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "", errors.ClassifierTimeout("classifier call exceeded " + c.timeout.String()).WithCause(err)
		case errors.Is(err, context.Canceled):
			return "", err
		default:
			var typed *errors.Error
			if errors.As(err, &typed) {
				return "", err
			}
			return "", errors.ClassifierTransport("classifier request failed").WithCause(err)
		}
	}

	completion, err := c.provider.ParseResponse(body)
	if err != nil {
		return "", err
	}

	c.logger.Debug("classifier call complete",
		slog.String("provider", c.name),
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(started)))
	return completion, nil
}

// Factory builds per-provider clients over a shared HTTP transport, shared
// outbound rate limiter, and the configured API keys. Provider selection
// lives in settings and may change at runtime, so clients are built per
// analysis run while the expensive parts stay shared.
type Factory struct {
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	keys       map[string]string
	logger     *slog.Logger
	mock       *MockProvider
}

// NewFactory creates a factory. keys maps provider names to API keys.
func NewFactory(keys map[string]string, logger *slog.Logger) *Factory {
	return &Factory{
		// No client-level timeout: each call carries its own deadline.
		httpClient: &http.Client{},
		limiter:    ratelimit.New(defaultRPS, defaultBurst),
		keys:       keys,
		logger:     logger,
		mock:       NewMockProvider(),
	}
}

// ClientFor returns a client for the named provider. An empty name selects
// anthropic; an empty model selects the provider default. The API key is
// validated here so a misconfigured key fails before any paid call.
func (f *Factory) ClientFor(name, model string) (*Client, error) {
	if name == "" {
		name = "anthropic"
	}

	var provider Provider
	switch name {
	case "anthropic":
		provider = NewAnthropicProvider(f.keys[name], f.httpClient)
		if model == "" {
			model = AnthropicDefaultModel
		}
	case "openai":
		provider = NewOpenAIProvider(f.keys[name], f.httpClient)
		if model == "" {
			model = OpenAIDefaultModel
		}
	case "mock":
		provider = f.mock
		if model == "" {
			model = "mock"
		}
	default:
		return nil, errors.Validationf("unknown classifier provider %q", name)
	}

	if err := provider.ValidateKey(f.keys[name]); err != nil {
		return nil, err
	}

	return NewClient(name, provider, model, f.limiter, f.logger), nil
}

// SetRate replaces the shared outbound rate limit. Non-positive values
// keep the defaults. Call before any client is built.
func (f *Factory) SetRate(rps float64, burst int) {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	f.limiter.Stop()
	f.limiter = ratelimit.New(rps, burst)
}

// Mock returns the shared mock provider so tests can script responses.
func (f *Factory) Mock() *MockProvider {
	return f.mock
}

// ConfiguredProviders returns the provider names that have an API key.
func (f *Factory) ConfiguredProviders() []string {
	names := make([]string, 0, len(f.keys))
	for name, key := range f.keys {
		if key != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Close releases the shared rate limiter.
func (f *Factory) Close() {
	f.limiter.Stop()
}
