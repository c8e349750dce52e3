package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeseek/internal/config"
	"codeseek/internal/index"
	"codeseek/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig     string
	flagDebug      bool
	flagStore      string
	flagStoreURL   string
	flagDB         string
	flagCollection string
	flagProvider   string
	flagEmbedURL   string
	flagModel      string
)

var rootCmd = &cobra.Command{
	Use:   "codeseek",
	Short: "Semantic code search over a vector index",
	Long: `codeseek splits source files into syntax-aware chunks, embeds them and
keeps them in a vector store so the codebase can be searched in natural language.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

// Execute runs the root command; it exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <cwd>/"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "vector store backend: qdrant, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&flagStoreURL, "qdrant-url", "", "qdrant base URL")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&flagCollection, "collection", "", "collection name")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "embedding provider: ollama, openai or mock")
	rootCmd.PersistentFlags().StringVar(&flagEmbedURL, "embed-url", "", "embedding service base URL")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model")
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, config.FileName), nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = flagDebug
	}
	if flags.Changed("store") {
		cfg.Store.Backend = flagStore
	}
	if flags.Changed("qdrant-url") {
		cfg.Store.URL = flagStoreURL
	}
	if flags.Changed("db") {
		cfg.Store.Path = flagDB
	}
	if flags.Changed("collection") {
		cfg.Store.Collection = flagCollection
	}
	if flags.Changed("provider") {
		cfg.Embedding.Provider = flagProvider
	}
	if flags.Changed("embed-url") {
		cfg.Embedding.URL = flagEmbedURL
	}
	if flags.Changed("model") {
		cfg.Embedding.Model = flagModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openEngine loads configuration, builds the logger and opens the engine.
// The returned cleanup closes the engine and flushes the logger.
func openEngine(cmd *cobra.Command) (*index.Engine, *config.Config, *zap.Logger, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}
	engine, err := index.Open(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, nil, err
	}
	cleanup := func() {
		if err := engine.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return engine, cfg, logger, cleanup, nil
}
