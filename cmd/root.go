package cmd

import (
	"github.com/spf13/cobra"

	"github.com/arjunm/recallmap/internal/config"
	"github.com/arjunm/recallmap/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "recallmap",
	Short: "Learning Mode engine for mind-map editors",
	Long: "Recallmap turns a mind-map diagram into an active-recall quiz: it hides a\n" +
		"sample of nodes, grades the learner's answers with an LLM, and walks failed\n" +
		"nodes through remediation before revealing them again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides RECALLMAP_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the effective configuration from the --config file
// plus environment and flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Database.Path = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db (highest
// priority), then the config file, then RECALLMAP_DB / the XDG default.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Database.Path != "" && !cfg.Database.Disabled() {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}
