package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/xiaot623/gogo/searchstream/config"
	"github.com/xiaot623/gogo/searchstream/internal/adapter/counter"
	"github.com/xiaot623/gogo/searchstream/internal/adapter/llm"
	"github.com/xiaot623/gogo/searchstream/internal/adapter/search"
	"github.com/xiaot623/gogo/searchstream/internal/cache"
	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/observability"
	"github.com/xiaot623/gogo/searchstream/internal/repository"
	"github.com/xiaot623/gogo/searchstream/internal/service"
	handler "github.com/xiaot623/gogo/searchstream/internal/transport/http"
	v1 "github.com/xiaot623/gogo/searchstream/internal/transport/http/v1"
	"github.com/xiaot623/gogo/searchstream/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()
	observability.Configure(os.Stdout, cfg.LogLevel)
	logger := observability.Logger()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting search service",
		"http_port", cfg.HTTPPort,
		"search_backend", cfg.SearchBackend,
		"llm_backend", cfg.LLMBackend,
		"cache_backend", cfg.CacheBackend,
		"store_backend", cfg.StoreBackend,
		"counter_backend", cfg.CounterBackend,
	)

	ctx := context.Background()

	// Initialize search engine
	engine, err := newSearchEngine(cfg)
	if err != nil {
		logger.Error("failed to initialize search engine", "error", err)
		os.Exit(1)
	}

	// Initialize cache
	cacheStore := newCacheStore(cfg)
	aside := cache.NewAside(cacheStore, cfg.SideEffectWait)

	// Initialize store
	db, err := newConversationStore(cfg)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize usage counter
	usage, err := newCounter(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize usage counter", "error", err)
		os.Exit(1)
	}

	// Initialize LLM client
	llmClient := llm.NewStreamClient(llm.Options{
		Backend:       cfg.LLMBackend,
		BaseURL:       cfg.LLMURL,
		APIKey:        cfg.LLMAPIKey,
		Timeout:       cfg.LLMTimeout,
		GuardFailures: cfg.LLMGuardFailures,
		GuardCooldown: cfg.LLMGuardCooldown,
	})

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	orch := service.New(service.Deps{
		Search: engine,
		Cache:  aside,
		Answer: service.NewAnswerStage(llmClient, cfg.ModelName, service.TokenBudget{
			Standard: cfg.MaxTokensStandard,
			Elevated: cfg.MaxTokensElevated,
		}, cfg.AnswerTemperature),
		Related: service.NewRelatedStage(llmClient, cfg.ModelName, cfg.RelatedTemperature),
		Store:   db,
		Counter: usage,
	}, service.Options{
		ImageLimit:        cfg.ImageLimit,
		TextLimit:         cfg.TextLimit,
		IndieDomains:      cfg.IndieDomains,
		DefaultCategory:   domain.SearchCategory(cfg.DefaultCategory),
		SideEffectTimeout: cfg.SideEffectWait,
	})

	server := handler.NewServer(v1.NewHandler(orch, db, policyEngine))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down search service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "error", err)
	}

	// Drain detached cache writes and counter increments.
	drained := make(chan struct{})
	go func() {
		orch.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn("background tasks still running at shutdown")
	}

	logger.Info("search service stopped")
}

func newSearchEngine(cfg *config.Config) (search.Engine, error) {
	switch cfg.SearchBackend {
	case config.BackendOpenSearch:
		client, err := search.NewOpenSearchClient(cfg.OpenSearchURL)
		if err != nil {
			return nil, err
		}
		return search.NewOpenSearchEngine(client, cfg.OpenSearchIndex, cfg.TextLimit), nil
	default:
		var crawler *search.Crawler
		if cfg.CrawlPages {
			crawler = search.NewCrawler(cfg.CrawlTimeout, cfg.MaxCrawlers, cfg.MaxContentSize, cfg.UserAgent)
		}
		return search.NewSearXNGEngine(cfg.SearXNGURL, cfg.SearchTimeout, cfg.UserAgent, crawler), nil
	}
}

func newCacheStore(cfg *config.Config) cache.Store {
	if cfg.CacheBackend == config.BackendRedis {
		return cache.NewRedisStore(cache.NewRedisClient(cfg.RedisAddr), cfg.CacheTTL)
	}
	return cache.NewMemoryStore()
}

func newConversationStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return repository.NewPostgresStore(cfg.PostgresDSN)
	default:
		return repository.NewSQLiteStore(cfg.DatabaseURL)
	}
}

func newCounter(ctx context.Context, cfg *config.Config) (counter.Counter, error) {
	switch cfg.CounterBackend {
	case config.BackendRedis:
		return counter.NewRedisCounter(cache.NewRedisClient(cfg.RedisAddr)), nil
	case config.BackendDynamoDB:
		client, err := counter.NewDynamoDBClient(ctx)
		if err != nil {
			return nil, err
		}
		return counter.NewDynamoCounter(client, cfg.DynamoDBTable), nil
	default:
		return counter.Noop{}, nil
	}
}
