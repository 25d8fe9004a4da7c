package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/store"
)

// NewProvider builds the configured provider wrapped with audit and
// retry middleware: caller → retry → audit → vendor.
func NewProvider(ctx context.Context, cfg Config, repo store.EventRepo, log *zap.Logger) (Provider, error) {
	if repo == nil {
		repo = store.NopRepo{}
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(WithAudit(base, repo, log), cfg.Retry), nil
}
