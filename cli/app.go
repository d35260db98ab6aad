// Application wiring for CLI commands.
//
// Information Hiding:
// - Component construction order hidden
// - Provider and embedder selection hidden
// - Storage backend selection hidden

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/richinex/chronica/agent"
	"github.com/richinex/chronica/analysis"
	"github.com/richinex/chronica/budget"
	"github.com/richinex/chronica/cache"
	"github.com/richinex/chronica/config"
	"github.com/richinex/chronica/llm"
	"github.com/richinex/chronica/retrieval"
	"github.com/richinex/chronica/storage"
	"github.com/richinex/chronica/tools"
)

// Options holds CLI-level settings shared across commands.
type Options struct {
	Provider    string
	MaxIter     int
	ToolRetries uint32
	Verbose     bool
}

// App is the assembled application: storage, retrieval, analysis, tools,
// and the reasoning kernel. Kernel is nil when no provider credentials are
// available; commands that only touch storage or the catalog still work.
type App struct {
	Settings config.Settings
	Logger   *log.Logger
	Store    *storage.SqliteStore
	Gateway  *retrieval.Gateway
	Results  *cache.ResultCache
	Registry *tools.Registry
	Kernel   *agent.Kernel

	providerErr error
}

// RequireKernel returns the kernel or the provider construction error.
func (a *App) RequireKernel() (*agent.Kernel, error) {
	if a.Kernel == nil {
		return nil, a.providerErr
	}
	return a.Kernel, nil
}

// Close releases the underlying store.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// BuildApp wires the full stack from settings and CLI options.
func BuildApp(opts Options) (*App, error) {
	providerName := opts.Provider
	if providerName == "" {
		providerName = "openai"
	}

	settings, err := config.New(providerName)
	if err != nil {
		return nil, err
	}
	if opts.MaxIter > 0 {
		settings.Agent.MaxIterations = opts.MaxIter
	}
	if opts.ToolRetries > 0 {
		settings.Agent.ToolRetries = opts.ToolRetries
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	store, err := openStore(settings)
	if err != nil {
		return nil, err
	}

	provider, providerErr := buildProvider(settings)
	var chatClient *llm.Client
	if providerErr == nil {
		chatClient = llm.NewClient(provider)
	} else {
		logger.Debug("provider unavailable", "err", providerErr)
	}

	embedder, err := buildEmbedder(settings, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	results := cache.NewWithThreshold(settings.Cache.Threshold)
	budgets := budget.NewManager(settings.Budget.MaxTokens)

	gateway := retrieval.NewGateway(store, embedder, logger, retrieval.Options{
		MinGapDays:  settings.Retrieval.MinGapDays,
		HighCount:   settings.Retrieval.HighCount,
		HighSim:     settings.Retrieval.HighSim,
		MediumCount: settings.Retrieval.MediumCount,
		MediumSim:   settings.Retrieval.MediumSim,
	})
	router := analysis.NewRouter(results, chatClient, budgets, logger)

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewRetrieveTool(gateway, results)); err != nil {
		store.Close()
		return nil, err
	}
	if err := registry.Register(tools.NewAnalyzeTool(router)); err != nil {
		store.Close()
		return nil, err
	}

	var kernel *agent.Kernel
	if providerErr == nil {
		executor := tools.NewExecutor(tools.ExecutorConfig{
			TimeoutSecs: settings.Agent.ToolTimeout,
			MaxRetries:  settings.Agent.ToolRetries,
		})
		kernel = agent.NewKernel(agent.Config{
			Name:          "chronica",
			MaxIterations: settings.Agent.MaxIterations,
		}, provider, registry, logger).WithExecutor(executor)
	}

	return &App{
		Settings:    settings,
		Logger:      logger,
		Store:       store,
		Gateway:     gateway,
		Results:     results,
		Registry:    registry,
		Kernel:      kernel,
		providerErr: providerErr,
	}, nil
}

func openStore(settings config.Settings) (*storage.SqliteStore, error) {
	if settings.Storage.Path != "" {
		return storage.OpenSqlite(settings.Storage.Path)
	}
	return storage.NewSqliteInMemory()
}

func buildProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(providerType, llm.ProviderConfig{
		APIKey:      apiKey,
		Model:       settings.LLM.Model,
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: float32(settings.LLM.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("building provider: %w", err)
	}
	return llm.WithRetry(provider, llm.DefaultRetryPolicy()), nil
}

// buildEmbedder returns nil when no embedding provider is configured;
// retrieval then runs without the similarity signal.
func buildEmbedder(settings config.Settings, logger *log.Logger) (retrieval.Embedder, error) {
	if settings.Embedding.Provider == "" {
		logger.Info("no embedding provider configured, similarity disabled")
		return nil, nil
	}
	providerType, err := llm.ParseProviderType(settings.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	apiKey, err := config.APIKeyFor(settings.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbedder(providerType, apiKey, settings.Embedding.Model)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}
	retrying := llm.EmbedderWithRetry(embedder, llm.DefaultRetryPolicy())
	return llm.NewCachingEmbedder(retrying), nil
}
