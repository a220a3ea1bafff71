// Package di wires the application graph.
package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/cache"
	"github.com/applizz/jobmail/internal/api"
	"github.com/applizz/jobmail/internal/classify"
	"github.com/applizz/jobmail/internal/config"
	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/factory"
	"github.com/applizz/jobmail/internal/logging"
	"github.com/applizz/jobmail/internal/merge"
	"github.com/applizz/jobmail/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewConnectorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register analysis cache and its janitor
	if err := container.Provide(func(f *factory.CacheFactory) (core.AnalysisCache, error) {
		return f.CreateAnalysisCache()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory, c core.AnalysisCache) (*cache.Janitor, error) {
		return f.CreateJanitor(c)
	}); err != nil {
		return nil, err
	}

	// Register persistent stores
	if err := container.Provide(func(f *factory.StoreFactory) (*factory.Stores, error) {
		return f.CreateStores()
	}); err != nil {
		return nil, err
	}

	// Register mailbox connectors
	if err := container.Provide(func(f *factory.ConnectorFactory, stores *factory.Stores) (map[core.ProviderKind]core.MailboxConnector, error) {
		return f.CreateConnectors(stores.Credentials)
	}); err != nil {
		return nil, err
	}

	// Register classifier engine
	if err := container.Provide(classify.NewKeywordClassifier); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		keyword *classify.KeywordClassifier,
		llm core.LLMClient,
		analysisCache core.AnalysisCache,
		logger *zap.Logger,
	) (core.EmailClassifier, error) {
		cacheTTL, err := cfg.GetDuration("cache.ttl")
		if err != nil {
			return nil, fmt.Errorf("invalid cache ttl: %w", err)
		}
		llmTTL, err := cfg.GetDuration("cache.llm_ttl")
		if err != nil {
			return nil, fmt.Errorf("invalid llm cache ttl: %w", err)
		}
		return classify.NewEngine(keyword, llm, analysisCache, logger,
			cacheTTL, llmTTL, cfg.GetLLM().MinConfidence), nil
	}); err != nil {
		return nil, err
	}

	// Register merge engine
	if err := container.Provide(func(logger *zap.Logger) core.SuggestionResolver {
		return merge.NewEngine(logger)
	}); err != nil {
		return nil, err
	}

	// Register scan service
	if err := container.Provide(func(
		cfg *config.Config,
		connectors map[core.ProviderKind]core.MailboxConnector,
		classifier core.EmailClassifier,
		resolver core.SuggestionResolver,
		stores *factory.Stores,
		logger *zap.Logger,
	) (*core.ScanService, error) {
		cooldown, err := cfg.GetDuration("scan.cooldown")
		if err != nil {
			return nil, fmt.Errorf("invalid scan cooldown: %w", err)
		}
		lookback, err := cfg.GetDuration("scan.default_lookback")
		if err != nil {
			return nil, fmt.Errorf("invalid scan lookback: %w", err)
		}
		scanCfg := cfg.GetScan()
		return core.NewScanService(
			connectors, classifier, resolver,
			stores.Credentials, stores.Applications, stores.Suggestions,
			logger, cooldown, lookback, scanCfg.FetchLimit, scanCfg.Concurrency), nil
	}); err != nil {
		return nil, err
	}

	// Register suggestion service
	if err := container.Provide(func(
		stores *factory.Stores,
		analysisCache core.AnalysisCache,
		logger *zap.Logger,
	) *core.SuggestionService {
		return core.NewSuggestionService(
			stores.Suggestions, stores.Applications, stores.Credentials,
			analysisCache, logger)
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		scans *core.ScanService,
		suggestions *core.SuggestionService,
		logger *zap.Logger,
	) (*api.Server, error) {
		readTimeout, err := cfg.GetDuration("server.read_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid server read timeout: %w", err)
		}
		writeTimeout, err := cfg.GetDuration("server.write_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid server write timeout: %w", err)
		}
		return api.NewServer(scans, suggestions, logger,
			cfg.GetServer().ListenAddress, readTimeout, writeTimeout), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
