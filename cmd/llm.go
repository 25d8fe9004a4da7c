package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/llm"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the LLM provider configuration",
}

var llmCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the provider configuration with a round-trip call",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.LLM.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLM.Timeout)
		defer cancel()

		provider, err := llm.NewProvider(ctx, cfg.LLM, nil, zap.NewNop())
		if err != nil {
			return err
		}

		fmt.Printf("Provider: %s\n", cfg.LLM.Provider)
		fmt.Printf("Model:    %s\n", provider.ModelID())

		start := time.Now()
		resp, err := provider.Generate(ctx, llm.Request{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Reply with the single word: ok"}},
			MaxTokens: 16,
		})
		if err != nil {
			return fmt.Errorf("round-trip failed: %w", err)
		}

		fmt.Printf("Latency:  %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Tokens:   %d in / %d out\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
		fmt.Println("OK")
		return nil
	},
}

func init() {
	llmCmd.AddCommand(llmCheckCmd)
}
