package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultOpenAIBaseURL is the public OpenAI API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements LLMProvider on top of the eino OpenAI chat model,
// so any OpenAI-compatible endpoint can be used via the base URL.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	chat    model.ChatModel
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (for OpenAI-compatible APIs).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.model = model }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = client }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(ctx context.Context, apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: DefaultOpenAIBaseURL,
		model:   "gpt-4o-mini",
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:    p.baseURL,
		APIKey:     p.apiKey,
		Model:      p.model,
		HTTPClient: p.client,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create chat model: %w", err)
	}
	p.chat = cm
	return p, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Ping checks that the API is reachable and the key is accepted.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: invalid API key", ErrNoAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrProviderDown, resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// Chat sends a chat completion request through eino.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := resolveModel(opts, p.model)

	msg, err := p.chat.Generate(ctx, convertToEinoMessages(messages), p.callOptions(model, opts)...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	r := &Response{
		Content:      msg.Content,
		Model:        model,
		Provider:     ProviderOpenAI,
		Latency:      time.Since(start),
		FinishReason: FinishStop,
	}
	if meta := msg.ResponseMeta; meta != nil {
		r.FinishReason = mapFinishReason(meta.FinishReason)
		if meta.Usage != nil {
			r.Usage = Usage{
				PromptTokens:     meta.Usage.PromptTokens,
				CompletionTokens: meta.Usage.CompletionTokens,
				TotalTokens:      meta.Usage.TotalTokens,
			}
		}
	}
	return r, nil
}

func (p *OpenAIProvider) callOptions(modelName string, opts *ChatOptions) []model.Option {
	out := []model.Option{model.WithModel(modelName)}
	if opts == nil {
		return out
	}
	if opts.Temperature > 0 {
		out = append(out, model.WithTemperature(float32(opts.Temperature)))
	}
	if opts.MaxTokens > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxTokens))
	}
	return out
}

func convertToEinoMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		role := schema.User
		switch m.Role {
		case RoleSystem:
			role = schema.System
		case RoleAssistant:
			role = schema.Assistant
		}
		out = append(out, &schema.Message{Role: role, Content: m.Content})
	}
	return out
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop", "":
		return FinishStop
	case "length":
		return FinishLength
	default:
		return FinishOther
	}
}
