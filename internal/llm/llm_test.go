package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/stockagent/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// provider.go: Types & Helpers
// ════════════════════════════════════════════════════════════════════

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("You are a financial analyst.")
	if sys.Role != RoleSystem || sys.Content != "You are a financial analyst." {
		t.Fatalf("SystemMessage: got %+v", sys)
	}

	user := UserMessage("hello")
	if user.Role != RoleUser || user.Content != "hello" {
		t.Fatalf("UserMessage: got %+v", user)
	}

	asst := AssistantMessage("hi there")
	if asst.Role != RoleAssistant || asst.Content != "hi there" {
		t.Fatalf("AssistantMessage: got %+v", asst)
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Provider: "ollama", Model: "llama3",
		Content: "short answer",
		Usage:   Usage{TotalTokens: 50},
		Latency: 100 * time.Millisecond,
	}
	s := r.String()
	if !strings.Contains(s, "ollama/llama3") || !strings.Contains(s, "50 tokens") {
		t.Fatalf("unexpected String(): %s", s)
	}

	// Long content (truncation)
	r.Content = strings.Repeat("x", 200)
	s = r.String()
	if !strings.Contains(s, "...") || strings.Contains(s, strings.Repeat("x", 101)) {
		t.Fatalf("content should be truncated: %s", s)
	}
}

func TestResolveModel(t *testing.T) {
	if got := resolveModel(nil, "llama3"); got != "llama3" {
		t.Fatalf("nil opts: got %q", got)
	}
	if got := resolveModel(&ChatOptions{}, "llama3"); got != "llama3" {
		t.Fatalf("empty model: got %q", got)
	}
	if got := resolveModel(&ChatOptions{Model: "mistral"}, "llama3"); got != "mistral" {
		t.Fatalf("override: got %q", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// ollama.go: Ollama Provider with mock server
// ════════════════════════════════════════════════════════════════════

func TestOllamaProviderNew(t *testing.T) {
	p, err := NewOllamaProvider("", WithOllamaModel("llama3.1:8b"))
	if err != nil {
		t.Fatal(err)
	}
	if p.baseURL != "http://localhost:11434" || p.model != "llama3.1:8b" {
		t.Fatalf("unexpected config: %+v", p)
	}
	if p.Name() != "ollama" {
		t.Fatal("basic methods failed")
	}
	if p.client.Timeout != 0 {
		t.Fatalf("default client should not time out, got %s", p.client.Timeout)
	}
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "llama3" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.Stream {
			t.Error("stream should be false for Chat")
		}
		if req.Options == nil || req.Options.Temperature != 0.2 || req.Options.NumPredict != 4096 {
			t.Errorf("unexpected options: %+v", req.Options)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		resp := ollamaChatResponse{
			Model:           "llama3",
			Message:         ollamaMessage{Role: "assistant", Content: "## Company Overview\nOracle sells databases."},
			Done:            true,
			DoneReason:      "stop",
			PromptEvalCount: 15,
			EvalCount:       8,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	resp, err := p.Chat(context.Background(),
		[]Message{UserMessage("Analyze ORCL")}, &ChatOptions{Temperature: 0.2, MaxTokens: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "## Company Overview\nOracle sells databases." {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if resp.Provider != "ollama" || resp.Usage.TotalTokens != 23 || resp.FinishReason != FinishStop {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOllamaChatNoOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"options"`) {
			t.Errorf("options should be omitted: %s", body)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:    ollamaMessage{Role: "assistant", Content: "cut"},
			Done:       true,
			DoneReason: "length",
		})
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL, WithOllamaModel("mistral"))
	resp, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "mistral" {
		t.Fatalf("model should fall back to the configured one, got %q", resp.Model)
	}
	if resp.FinishReason != FinishLength {
		t.Fatalf("expected length, got %s", resp.FinishReason)
	}
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestOllamaHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"llama3\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p, _ := NewOllamaProvider(url)
	_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
	if !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
	if err := p.Ping(context.Background()); !errors.Is(err, ErrProviderDown) {
		t.Fatalf("Ping: expected ErrProviderDown, got %v", err)
	}
}

func TestOllamaCustomHTTPClient(t *testing.T) {
	c := &http.Client{Timeout: 5 * time.Second}
	p, _ := NewOllamaProvider("", WithOllamaHTTPClient(c))
	if p.client != c {
		t.Fatal("custom client not set")
	}
}

// ════════════════════════════════════════════════════════════════════
// openai.go: OpenAI Provider (eino) with mock server
// ════════════════════════════════════════════════════════════════════

func TestOpenAIProviderNew(t *testing.T) {
	_, err := NewOpenAIProvider(context.Background(), "")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}

	p, err := NewOpenAIProvider(context.Background(), "sk-test", WithOpenAIModel("gpt-4o"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" || p.model != "gpt-4o" || p.baseURL != DefaultOpenAIBaseURL {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header: %q", r.Header.Get("Authorization"))
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("unexpected model: %v", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Oracle looks solid."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(context.Background(), "sk-test", WithOpenAIBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Chat(context.Background(), []Message{UserMessage("Analyze ORCL")}, &ChatOptions{Temperature: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Oracle looks solid." || resp.Provider != "openai" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 16 || resp.FinishReason != FinishStop {
		t.Fatalf("unexpected usage/finish: %+v", resp)
	}
}

func TestOpenAIPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, _ := NewOpenAIProvider(context.Background(), "sk-good", WithOpenAIBaseURL(server.URL))
	if err := good.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	bad, _ := NewOpenAIProvider(context.Background(), "sk-bad", WithOpenAIBaseURL(server.URL))
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]FinishReason{
		"stop":           FinishStop,
		"":               FinishStop,
		"length":         FinishLength,
		"content_filter": FinishOther,
	}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestConvertToEinoMessages(t *testing.T) {
	out := convertToEinoMessages([]Message{
		SystemMessage("sys"), UserMessage("u"), AssistantMessage("a"),
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
	if out[0].Role != "system" || out[1].Role != "user" || out[2].Role != "assistant" {
		t.Fatalf("unexpected roles: %s %s %s", out[0].Role, out[1].Role, out[2].Role)
	}
}

// ════════════════════════════════════════════════════════════════════
// anthropic.go: Anthropic Provider (SDK) with mock server
// ════════════════════════════════════════════════════════════════════

func TestAnthropicProviderNew(t *testing.T) {
	_, err := NewAnthropicProvider("")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}
	p, err := NewAnthropicProvider("sk-ant-test", WithAnthropicModel("claude-3-5-haiku-latest"), WithAnthropicMaxTokens(512))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "anthropic" || p.model != "claude-3-5-haiku-latest" || p.maxTokens != 512 {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestAnthropicChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-ant-test" {
			t.Errorf("missing api key header")
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "claude-sonnet-4-5" {
			t.Errorf("unexpected model: %v", req["model"])
		}
		if req["max_tokens"] != float64(4096) {
			t.Errorf("unexpected max_tokens: %v", req["max_tokens"])
		}
		if _, ok := req["system"]; !ok {
			t.Errorf("system prompt should be sent separately")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"Oracle has "},{"type":"text","text":"strong cloud growth."}],
			"stop_reason":"end_turn","stop_sequence":null,
			"usage":{"input_tokens":20,"output_tokens":6}
		}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("sk-ant-test", WithAnthropicBaseURL(server.URL))
	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("Be concise."), UserMessage("Analyze ORCL")}, &ChatOptions{Temperature: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Oracle has strong cloud growth." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 26 || resp.FinishReason != FinishStop || resp.Provider != "anthropic" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnthropicErrorIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("sk-ant-test", WithAnthropicBaseURL(server.URL))
	_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

// ════════════════════════════════════════════════════════════════════
// gemini.go: Gemini Provider (genai) with mock server
// ════════════════════════════════════════════════════════════════════

func TestGeminiProviderNew(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}
	p, err := NewGeminiProvider(context.Background(), "gemini-test-key")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "gemini" || p.model != "gemini-2.0-flash" {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestGeminiChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["contents"]; !ok {
			t.Errorf("contents missing: %v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"Oracle remains a value play."}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}
		}`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(context.Background(), "gemini-test-key", WithGeminiBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Chat(context.Background(), []Message{UserMessage("Analyze ORCL")}, &ChatOptions{Temperature: 0.2, MaxTokens: 256})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "Oracle remains a value play." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 || resp.FinishReason != FinishStop {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

// ════════════════════════════════════════════════════════════════════
// factory.go: provider selection
// ════════════════════════════════════════════════════════════════════

func testConfig(primary string) *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		Primary:      primary,
		Model:        "llama3",
		Temperature:  0.2,
		MaxTokens:    4096,
		OllamaURL:    "http://localhost:11434",
		OpenAIKey:    "sk-test",
		AnthropicKey: "sk-ant-test",
		GeminiKey:    "gemini-test",
	}}
}

func TestNewProviderFromConfig(t *testing.T) {
	tests := []struct {
		primary string
		want    string
	}{
		{"ollama", ProviderOllama},
		{"openai", ProviderOpenAI},
		{"anthropic", ProviderAnthropic},
		{"gemini", ProviderGemini},
	}
	for _, tt := range tests {
		p, err := NewProviderFromConfig(context.Background(), testConfig(tt.primary))
		if err != nil {
			t.Fatalf("%s: %v", tt.primary, err)
		}
		if p.Name() != tt.want {
			t.Errorf("%s: got provider %q", tt.primary, p.Name())
		}
	}
}

func TestNewProviderFromConfigModels(t *testing.T) {
	p, _ := NewProviderFromConfig(context.Background(), testConfig("ollama"))
	if m := p.(*OllamaProvider).model; m != "llama3" {
		t.Errorf("ollama model: got %q", m)
	}
	p, _ = NewProviderFromConfig(context.Background(), testConfig("anthropic"))
	if m := p.(*AnthropicProvider).model; m != "claude-sonnet-4-5" {
		t.Errorf("anthropic model: got %q", m)
	}

	cfg := testConfig("openai")
	p, _ = NewProviderFromConfig(context.Background(), cfg)
	if m := p.(*OpenAIProvider).model; m != "gpt-4o-mini" {
		t.Errorf("openai model: got %q", m)
	}

	// OpenAI-compatible servers keep the configured model name.
	cfg.LLM.OpenAIBaseURL = "http://localhost:1234/v1"
	p, _ = NewProviderFromConfig(context.Background(), cfg)
	if op := p.(*OpenAIProvider); op.model != "llama3" || op.baseURL != "http://localhost:1234/v1" {
		t.Errorf("compatible server: got %q at %q", op.model, op.baseURL)
	}
}

func TestNewProviderFromConfigTimeout(t *testing.T) {
	cfg := testConfig("ollama")
	cfg.LLM.Timeout = 90 * time.Second
	p, _ := NewProviderFromConfig(context.Background(), cfg)
	if got := p.(*OllamaProvider).client.Timeout; got != 90*time.Second {
		t.Fatalf("timeout: got %s", got)
	}
}

func TestNewProviderFromConfigErrors(t *testing.T) {
	cfg := testConfig("llamafile")
	if _, err := NewProviderFromConfig(context.Background(), cfg); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	cfg = testConfig("anthropic")
	cfg.LLM.AnthropicKey = ""
	if _, err := NewProviderFromConfig(context.Background(), cfg); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(testConfig("ollama"))
	if opts.Temperature != 0.2 || opts.MaxTokens != 4096 || opts.Model != "" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
