package classifier

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

const (
	anthropicEndpoint   = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"

	// AnthropicDefaultModel is used when settings leave the model blank.
	AnthropicDefaultModel = "claude-sonnet-4-5"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	http   *http.Client
	apiKey string
}

// NewAnthropicProvider creates a provider bound to one API key.
// The HTTP client is shared across providers; per-call deadlines come from
// the context, so the client itself carries no timeout.
func NewAnthropicProvider(apiKey string, httpClient *http.Client) *AnthropicProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicProvider{
		http:   httpClient,
		apiKey: apiKey,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CreatePayload shapes the Messages API request body.
func (p *AnthropicProvider) CreatePayload(req Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	body := anthropicRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.User},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}
	return data, nil
}

// SendRequest executes the call and returns the raw response body.
func (p *AnthropicProvider) SendRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, providerStatusError("anthropic", resp.StatusCode, body)
	}
	return body, nil
}

// ParseResponse reduces the Messages API envelope to the completion text.
func (p *AnthropicProvider) ParseResponse(body []byte) (string, error) {
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.ClassifierTransportf("anthropic response is not valid JSON").WithCause(err)
	}
	if parsed.Error != nil {
		return "", errors.ClassifierTransportf("anthropic API error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return "", errors.ClassifierTransport("anthropic response has no content")
	}
	return parsed.Content[0].Text, nil
}

// ValidateKey rejects keys that cannot possibly be Anthropic keys.
func (p *AnthropicProvider) ValidateKey(key string) error {
	if key == "" {
		return errors.InvalidCredentials("anthropic API key is not configured")
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.InvalidCredentials("anthropic API keys start with sk-ant-")
	}
	return nil
}

// providerStatusError maps a non-200 provider status to a transport error
// with a readable cause.
func providerStatusError(provider string, status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.InvalidCredentials(fmt.Sprintf("%s rejected the API key", provider))
	case http.StatusTooManyRequests:
		return errors.ClassifierTransportf("%s rate limit exceeded", provider)
	default:
		return errors.ClassifierTransportf("%s returned status %d: %s", provider, status, snippet)
	}
}
