package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/heartrisk/internal/config"
	"github.com/abhisek/heartrisk/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "heartrisk",
	Short: "Heart attack risk assessment",
	Long: "heartrisk scores a patient's heart attack risk with a pre-trained gradient-boosted tree model.\n" +
		"Run without a subcommand to open the terminal form.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite history database (overrides HEARTRISK_DB env var)")
	rootCmd.PersistentFlags().String("model", "", "Path to the model artifact, .bin or .json (overrides HEARTRISK_MODEL env var)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("model"); p != "" {
		cfg.ModelPath = p
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then HEARTRISK_DB env var, then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openHistory opens the history store, or returns nil when history is
// disabled.
func openHistory(cfg config.Config) (*store.Store, error) {
	if !cfg.History {
		return nil, nil
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
