package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"doclens/config"
	"doclens/internal/adapter/cache"
	"doclens/internal/adapter/embedding"
	"doclens/internal/adapter/llm"
	"doclens/internal/adapter/memstore"
	"doclens/internal/adapter/store"
	"doclens/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "doclens",
	Short: "Document QA - ingest documents and ask grounded questions",
	Long: `doclens ingests text documents into a per-document vector index and
answers questions grounded in the document's own content.

Example usage:
  doclens ingest report.md                 # Chunk, embed, and index a document
  doclens ask <doc-id> "Who is the author?"
  doclens search <doc-id> "revenue growth" # Raw retrieval with diagnostics
  doclens summarize <doc-id>               # Five-bullet document summary`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// Provider API keys commonly live in a local .env file.
		_ = godotenv.Load(filepath.Join(rootDir, ".env"))

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./doclens.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// dataDir resolves the configured store directory against the root dir.
func dataDir() string {
	if filepath.IsAbs(cfg.Store.Dir) {
		return cfg.Store.Dir
	}
	return filepath.Join(rootDir, cfg.Store.Dir)
}

// openRepository builds the configured persistence backend.
func openRepository() (port.Repository, error) {
	dir := dataDir()
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileRepository(dir)
	case "bolt":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return store.NewBoltRepository(config.VectorDBPath(dir))
	case "memory":
		return memstore.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// newEmbedder builds the configured embedding provider.
func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newGenerator builds the configured answer generation provider.
func newGenerator() (port.Generator, error) {
	switch cfg.Generate.Provider {
	case "openai":
		if cfg.Generate.BaseURL != "" {
			return llm.NewOpenAICompatibleGenerator(cfg.Generate.APIKeyEnv, cfg.Generate.Model, cfg.Generate.BaseURL)
		}
		return llm.NewOpenAIGenerator(cfg.Generate.APIKeyEnv, cfg.Generate.Model)
	case "mock":
		return &llm.MockGenerator{Responses: []string{"mock answer"}}, nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Generate.Provider)
	}
}

var queryCache *cache.QueryCache

// newQueryCache returns the process-wide retrieval and summary cache, so
// ingestion and deletion can invalidate entries any earlier command cached.
func newQueryCache() *cache.QueryCache {
	if queryCache == nil {
		queryCache = cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSecs)*time.Second)
	}
	return queryCache
}

// truncate shortens s to at most n bytes on a rune boundary, with an
// ellipsis when anything was cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
