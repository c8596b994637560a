// Package config handles configuration loading for stockagent.
// It supports YAML config files with environment variable overrides
// and an optional .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Quote   QuoteConfig   `mapstructure:"quote"   yaml:"quote"`
	HTTP    HTTPConfig    `mapstructure:"http"    yaml:"http"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// File is the config file that was read, or "" when defaults were used.
	File string `mapstructure:"-" yaml:"-"`
}

// LLMConfig holds the narrative-generation backend configuration.
type LLMConfig struct {
	Primary       string        `mapstructure:"primary"         yaml:"primary"` // "ollama", "openai", "anthropic", "gemini"
	Model         string        `mapstructure:"model"           yaml:"model"`
	Temperature   float64       `mapstructure:"temperature"     yaml:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"      yaml:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"         yaml:"timeout"` // 0 = no timeout
	OllamaURL     string        `mapstructure:"ollama_url"      yaml:"ollama_url"`
	OpenAIKey     string        `mapstructure:"openai_key"      yaml:"openai_key"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	AnthropicKey  string        `mapstructure:"anthropic_key"   yaml:"anthropic_key"`
	GeminiKey     string        `mapstructure:"gemini_key"      yaml:"gemini_key"`
}

// NewsConfig holds the quote-page news scraper settings.
type NewsConfig struct {
	Origin      string `mapstructure:"origin"       yaml:"origin"` // e.g., "https://finance.yahoo.com"
	UserAgent   string `mapstructure:"user_agent"   yaml:"user_agent"`
	MaxItems    int    `mapstructure:"max_items"    yaml:"max_items"`
	RSSFallback bool   `mapstructure:"rss_fallback" yaml:"rss_fallback"`
	RSSURL      string `mapstructure:"rss_url"      yaml:"rss_url"` // fmt pattern, %s = ticker
}

// QuoteConfig holds the quote/fundamentals provider settings.
type QuoteConfig struct {
	BaseURL       string `mapstructure:"base_url"       yaml:"base_url"`
	CookieURL     string `mapstructure:"cookie_url"     yaml:"cookie_url"` // primes the session cookie for the crumb; "" disables the handshake
	HistoryPeriod string `mapstructure:"history_period" yaml:"history_period"`
}

// HTTPConfig holds settings shared by all outbound HTTP fetches.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
	File   string `mapstructure:"file"   yaml:"file"`   // optional, tee logs to this file
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockagent/config.yaml (home directory)
//  3. /etc/stockagent/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKAGENT_<SECTION>_<KEY>, e.g., STOCKAGENT_LLM_OPENAI_KEY
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockagent"))
	v.AddConfigPath("/etc/stockagent")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Addr returns the host:port the API server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("STOCKAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.File = v.ConfigFileUsed()
	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.LLM.Primary {
	case "ollama", "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("invalid llm.primary %q (want ollama, openai, anthropic or gemini)", c.LLM.Primary)
	}
	if c.News.MaxItems <= 0 {
		return fmt.Errorf("news.max_items must be positive, got %d", c.News.MaxItems)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.News.Origin == "" {
		return fmt.Errorf("news.origin is required")
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "ollama")
	v.SetDefault("llm.model", "llama3")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")

	// News defaults
	v.SetDefault("news.origin", "https://finance.yahoo.com")
	v.SetDefault("news.user_agent", DefaultUserAgent)
	v.SetDefault("news.max_items", 10)
	v.SetDefault("news.rss_fallback", false)
	v.SetDefault("news.rss_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")

	// Quote defaults
	v.SetDefault("quote.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quote.cookie_url", "https://fc.yahoo.com")
	v.SetDefault("quote.history_period", "1d")

	// Outbound HTTP
	v.SetDefault("http.timeout", 10*time.Second)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
}

// DefaultUserAgent identifies the scraper to the news site.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("STOCKAGENT_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("STOCKAGENT_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("STOCKAGENT_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
}

// loadDotEnv populates the process environment from ./.env if it exists.
// Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
