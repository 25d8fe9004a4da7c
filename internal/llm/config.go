package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "mock".
	Provider string `yaml:"provider"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Retry     RetryConfig     `yaml:"retry"`

	// Timeout bounds a single grading call including retries.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // default "claude-haiku"
}

// OpenAIConfig configures the OpenAI provider. BaseURL makes it work
// against OpenRouter and other compatible APIs.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // default "gpt-4o-mini"
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // default "gemini-flash"
}

// RetryConfig tunes transient-failure retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Provider:  "anthropic",
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ApplyEnv overlays RECALLMAP_* environment variables on the config.
// Values already set keep priority only when the env var is empty.
func (c *Config) ApplyEnv() {
	if p := os.Getenv("RECALLMAP_LLM_PROVIDER"); p != "" {
		c.Provider = p
	}
	if k := os.Getenv("RECALLMAP_ANTHROPIC_API_KEY"); k != "" {
		c.Anthropic.APIKey = k
	}
	if m := os.Getenv("RECALLMAP_ANTHROPIC_MODEL"); m != "" {
		c.Anthropic.Model = m
	}
	if k := os.Getenv("RECALLMAP_OPENAI_API_KEY"); k != "" {
		c.OpenAI.APIKey = k
	}
	if m := os.Getenv("RECALLMAP_OPENAI_MODEL"); m != "" {
		c.OpenAI.Model = m
	}
	if u := os.Getenv("RECALLMAP_OPENAI_BASE_URL"); u != "" {
		c.OpenAI.BaseURL = u
	}
	if k := os.Getenv("RECALLMAP_GEMINI_API_KEY"); k != "" {
		c.Gemini.APIKey = k
	}
	if m := os.Getenv("RECALLMAP_GEMINI_MODEL"); m != "" {
		c.Gemini.Model = m
	}

	// Fall back to the vendors' conventional key variables so a plain
	// ANTHROPIC_API_KEY works out of the box.
	if c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic provider selected but no API key set (RECALLMAP_ANTHROPIC_API_KEY)")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai provider selected but no API key set (RECALLMAP_OPENAI_API_KEY)")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini provider selected but no API key set (RECALLMAP_GEMINI_API_KEY)")
		}
	case "mock":
		// Nothing to validate.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
