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
	openaiEndpoint = "https://api.openai.com/v1/chat/completions"

	// OpenAIDefaultModel is used when settings leave the model blank.
	OpenAIDefaultModel = "gpt-4o-mini"
)

// OpenAIProvider talks to the OpenAI Chat Completions API.
type OpenAIProvider struct {
	http   *http.Client
	apiKey string
}

// NewOpenAIProvider creates a provider bound to one API key.
func NewOpenAIProvider(apiKey string, httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIProvider{
		http:   httpClient,
		apiKey: apiKey,
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Messages  []openaiMessage `json:"messages"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// CreatePayload shapes the Chat Completions request body. The system
// instruction rides as the first message since the API has no separate
// system field.
func (p *OpenAIProvider) CreatePayload(req Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	messages := make([]openaiMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.User})

	body := openaiRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
		Messages:  messages,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}
	return data, nil
}

// SendRequest executes the call and returns the raw response body.
func (p *OpenAIProvider) SendRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return nil, providerStatusError("openai", resp.StatusCode, body)
	}
	return body, nil
}

// ParseResponse reduces the Chat Completions envelope to the completion text.
func (p *OpenAIProvider) ParseResponse(body []byte) (string, error) {
	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.ClassifierTransportf("openai response is not valid JSON").WithCause(err)
	}
	if parsed.Error != nil {
		return "", errors.ClassifierTransportf("openai API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.ClassifierTransport("openai response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// ValidateKey rejects keys that cannot possibly be OpenAI keys.
func (p *OpenAIProvider) ValidateKey(key string) error {
	if key == "" {
		return errors.InvalidCredentials("openai API key is not configured")
	}
	if !strings.HasPrefix(key, "sk-") || strings.HasPrefix(key, "sk-ant-") {
		return errors.InvalidCredentials("openai API keys start with sk-")
	}
	return nil
}
