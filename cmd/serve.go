package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/config"
	"github.com/arjunm/recallmap/internal/grading"
	"github.com/arjunm/recallmap/internal/llm"
	"github.com/arjunm/recallmap/internal/server"
	"github.com/arjunm/recallmap/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assessment server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	var events store.EventRepo = store.NopRepo{}
	if !cfg.Database.Disabled() {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()
		events = s.EventRepo()
		log.Info("event log open", zap.String("path", dbPath))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grader, err := buildGrader(cmd, cfg, events, log)
	if err != nil {
		return err
	}

	return server.New(cfg, grader, events, log).Run(ctx)
}

// buildGrader wires the grading client. Provider "mock" bypasses the
// LLM stack entirely so the server runs offline.
func buildGrader(cmd *cobra.Command, cfg config.Config, events store.EventRepo, log *zap.Logger) (grading.Client, error) {
	if cfg.LLM.Provider == "mock" {
		log.Warn("using mock grading client; verdicts are text comparisons")
		return grading.NewMockClient(), nil
	}

	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(cmd.Context(), cfg.LLM, events, log)
	if err != nil {
		return nil, err
	}
	return grading.NewLLMClient(provider, grading.DefaultConfig()), nil
}
