package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/carwise/gearbox/internal/cache"
	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/config"
	"github.com/carwise/gearbox/internal/db"
	"github.com/carwise/gearbox/internal/kb"
	"github.com/carwise/gearbox/internal/llm"
	"github.com/carwise/gearbox/internal/orchestrator"
	"github.com/carwise/gearbox/internal/providers"
	"github.com/carwise/gearbox/internal/refine"
	"github.com/carwise/gearbox/internal/retry"
	"github.com/carwise/gearbox/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `gearbox init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// embeddingFuncFromConfig returns the embedding function for the procedure
// knowledge base: the configured OpenAI-compatible model when LLM support
// is enabled, a local lexical fallback otherwise.
func embeddingFuncFromConfig(cfg *config.Config) (chromem.EmbeddingFunc, error) {
	if !cfg.LLM.Enabled {
		return kb.LocalEmbeddingFunc(256), nil
	}
	ef, err := llm.EmbeddingFunc(cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("creating embedding function: %w", err)
	}
	return chromem.EmbeddingFunc(ef), nil
}

// openProcedureStore creates the knowledge base and loads any persisted
// procedures from the data directory. A missing snapshot is not an error;
// the store starts empty until `gearbox seed` runs.
func openProcedureStore(cfg *config.Config) (*kb.Store, error) {
	ef, err := embeddingFuncFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := kb.NewStore(ef)
	if err != nil {
		return nil, fmt.Errorf("creating procedure store: %w", err)
	}

	if _, statErr := os.Stat(filepath.Join(cfg.DataDir, "procedures.gob.gz")); statErr == nil {
		if err := store.Load(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("loading procedure store: %w", err)
		}
	}
	return store, nil
}

// buildOrchestrator assembles the full capability execution stack from
// config. The returned database handle must be closed by the caller.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, *db.DB, error) {
	database, err := db.Open(filepath.Join(cfg.DataDir, "gearbox.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	procedures, err := openProcedureStore(cfg)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	var llmProvider llm.Provider
	if cfg.LLM.Enabled {
		provider, err := llm.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.Model)
		if err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		llmProvider = llm.NewRateLimitedProvider(provider, cfg.LLM.RPM)
	}

	registry := capability.NewRegistry()
	err = providers.Register(registry, cfg, providers.Options{
		Procedures: procedures,
		LLM:        llmProvider,
	})
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("registering providers: %w", err)
	}

	exec := retry.NewExecutor(cfg.BaseDelay(), cfg.Retry.MaxRetries)
	orch := orchestrator.New(
		registry,
		cache.NewStore(cfg.TTLPolicy()),
		refine.New(exec),
		session.NewSQLiteStore(database),
	)
	return orch, database, nil
}
