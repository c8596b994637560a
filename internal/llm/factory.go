package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/seenimoa/stockagent/internal/config"
)

// NewProviderFromConfig creates the single narrative backend selected by
// cfg.LLM.Primary. There is no fallback chain: if the selected backend is
// misconfigured the error is returned and nothing else is tried.
func NewProviderFromConfig(ctx context.Context, cfg *config.Config) (LLMProvider, error) {
	lc := cfg.LLM
	// A zero timeout leaves the client unbounded.
	client := &http.Client{Timeout: lc.Timeout}

	switch lc.Primary {
	case ProviderOllama:
		return NewOllamaProvider(lc.OllamaURL,
			WithOllamaModel(lc.Model),
			WithOllamaHTTPClient(client),
		)
	case ProviderOpenAI:
		model := defaultOpenAIModel(lc.Model)
		opts := []OpenAIOption{WithOpenAIHTTPClient(client)}
		if lc.OpenAIBaseURL != "" && strings.TrimRight(lc.OpenAIBaseURL, "/") != DefaultOpenAIBaseURL {
			// OpenAI-compatible servers use their own model names.
			model = lc.Model
			opts = append(opts, WithOpenAIBaseURL(lc.OpenAIBaseURL))
		}
		opts = append(opts, WithOpenAIModel(model))
		return NewOpenAIProvider(ctx, lc.OpenAIKey, opts...)
	case ProviderAnthropic:
		return NewAnthropicProvider(lc.AnthropicKey,
			WithAnthropicModel(defaultAnthropicModel(lc.Model)),
			WithAnthropicMaxTokens(lc.MaxTokens),
			WithAnthropicHTTPClient(client),
		)
	case ProviderGemini:
		return NewGeminiProvider(ctx, lc.GeminiKey,
			WithGeminiModel(defaultGeminiModel(lc.Model)),
			WithGeminiHTTPClient(client),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, lc.Primary)
	}
}

// OptionsFromConfig returns the per-request options for cfg.
func OptionsFromConfig(cfg *config.Config) *ChatOptions {
	return &ChatOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
}

// The configured model defaults to the local "llama3"; hosted backends
// substitute their own default unless a model of their family is named.

func defaultOpenAIModel(model string) string {
	if strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") {
		return model
	}
	return "gpt-4o-mini"
}

func defaultGeminiModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return "gemini-2.0-flash"
}

func defaultAnthropicModel(model string) string {
	if strings.HasPrefix(model, "claude") {
		return model
	}
	return "claude-sonnet-4-5"
}
