// Package cli implements the ragstore command-line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/ragstore-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragstore-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/ragstore-cli/internal/adapters/driven/embedding/openai"
	sqlitestore "github.com/custodia-labs/ragstore-cli/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/ragstore-cli/internal/chunker"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore-cli/internal/core/services"
	"github.com/custodia-labs/ragstore-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services wired by initServices and shared by all commands.
var (
	configStore      driven.ConfigStore
	vectorStore      driven.VectorStore
	embedder         driven.EmbeddingService
	ingestionService driving.IngestionService
	retrievalService driving.RetrievalService
)

var (
	flagVerbose   bool
	flagConfigDir string
)

var rootCmd = &cobra.Command{
	Use:   "ragstore",
	Short: "Local RAG document store",
	Long: `ragstore ingests plain-text documents into a local vector store
and retrieves diversity-balanced context for them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		// version and help need no services
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initServices()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.ragstore)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// initServices wires the config store, embedding provider, vector store
// and core services. Called once per invocation from PersistentPreRunE.
func initServices() error {
	if ingestionService != nil && retrievalService != nil {
		return nil
	}

	cfg, err := configfile.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configStore = cfg

	embedder, err = newEmbedder(cfg)
	if err != nil {
		return err
	}

	store, err := sqlitestore.NewStore(cfg.GetString(configfile.KeyDataDir))
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	vectorStore = store

	batcher := services.NewBatcher(embedder, cfg.GetInt(configfile.KeyEmbeddingBatch))

	var opts []chunker.Option
	if size := cfg.GetInt(configfile.KeyChunkSize); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap := cfg.GetInt(configfile.KeyChunkOverlap); overlap > 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	splitter := chunker.New(opts...)

	ingestionService = services.NewIngestionService(store, batcher, splitter)
	retrievalService = services.NewRetrievalService(store, batcher)

	logger.Debug("Services initialised (config: %s, store: %s, model: %s)",
		cfg.Path(), store.Path(), embedder.ModelName())
	return nil
}

// newEmbedder builds the embedding adapter selected in config.
// An unset provider defaults to ollama, which needs no credentials.
func newEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := cfg.GetString(configfile.KeyEmbeddingProvider)

	switch provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL: cfg.GetString(configfile.KeyEmbeddingBaseURL),
			Model:   cfg.GetString(configfile.KeyEmbeddingModel),
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:  cfg.GetString(configfile.KeyEmbeddingAPIKey),
			BaseURL: cfg.GetString(configfile.KeyEmbeddingBaseURL),
			Model:   cfg.GetString(configfile.KeyEmbeddingModel),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", provider)
	}
}

// closeServices releases adapter resources.
func closeServices() {
	if vectorStore != nil {
		if err := vectorStore.Close(); err != nil {
			logger.Warn("Closing vector store: %v", err)
		}
	}
	if embedder != nil {
		if err := embedder.Close(); err != nil {
			logger.Warn("Closing embedding service: %v", err)
		}
	}
}

// errNotConfigured reports a command invoked without wired services.
var errNotConfigured = errors.New("services not configured")
