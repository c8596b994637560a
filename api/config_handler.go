package api

import (
	"net/http"
	"time"

	"github.com/seenimoa/stockagent/internal/config"
)

// ConfigView is the running configuration with secrets left out.
type ConfigView struct {
	ConfigFile string `json:"config_file,omitempty"`
	LLM        struct {
		Primary       string        `json:"primary"`
		Model         string        `json:"model"`
		Temperature   float64       `json:"temperature"`
		MaxTokens     int           `json:"max_tokens"`
		Timeout       time.Duration `json:"timeout"`
		OllamaURL     string        `json:"ollama_url"`
		OpenAIBaseURL string        `json:"openai_base_url,omitempty"`
	} `json:"llm"`
	News    config.NewsConfig    `json:"news"`
	Quote   config.QuoteConfig   `json:"quote"`
	HTTP    config.HTTPConfig    `json:"http"`
	Logging config.LoggingConfig `json:"logging"`
}

func newConfigView(cfg *config.Config) ConfigView {
	var v ConfigView
	v.ConfigFile = cfg.File
	v.LLM.Primary = cfg.LLM.Primary
	v.LLM.Model = cfg.LLM.Model
	v.LLM.Temperature = cfg.LLM.Temperature
	v.LLM.MaxTokens = cfg.LLM.MaxTokens
	v.LLM.Timeout = cfg.LLM.Timeout
	v.LLM.OllamaURL = cfg.LLM.OllamaURL
	v.LLM.OpenAIBaseURL = cfg.LLM.OpenAIBaseURL
	v.News = cfg.News
	v.Quote = cfg.Quote
	v.HTTP = cfg.HTTP
	v.Logging = cfg.Logging
	return v
}

// handleGetConfig returns the running configuration without API keys.
// The configuration is read-only at runtime: the narrative backend is built
// once at startup.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    newConfigView(s.cfg),
	})
}

// handleGetConfigKeys returns the status of all API keys, masked.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
