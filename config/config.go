// Package config provides configuration for the search service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by the *_BACKEND variables.
const (
	BackendMemory     = "memory"
	BackendRedis      = "redis"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendDynamoDB   = "dynamodb"
	BackendNoop       = "noop"
	BackendSearXNG    = "searxng"
	BackendOpenSearch = "opensearch"
	BackendOpenAI     = "openai"
	BackendOllama     = "ollama"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort        int
	ShutdownTimeout time.Duration

	// Search engine
	SearchBackend   string
	SearXNGURL      string
	OpenSearchURL   string
	OpenSearchIndex string
	SearchTimeout   time.Duration
	CrawlPages      bool
	CrawlTimeout    time.Duration
	MaxCrawlers     int
	MaxContentSize  int64
	UserAgent       string

	// Model
	LLMBackend         string
	LLMURL             string
	LLMAPIKey          string
	ModelName          string
	LLMTimeout         time.Duration
	LLMGuardFailures   int
	LLMGuardCooldown   time.Duration
	MaxTokensStandard  int
	MaxTokensElevated  int
	AnswerTemperature  float64
	RelatedTemperature float64

	// Cache
	CacheBackend string
	RedisAddr    string
	CacheTTL     time.Duration

	// Persistence
	StoreBackend string
	DatabaseURL  string
	PostgresDSN  string

	// Usage counter
	CounterBackend string
	DynamoDBTable  string

	// Orchestration tunables
	ImageLimit      int
	TextLimit       int
	IndieDomains    []string
	SideEffectWait  time.Duration
	DefaultCategory string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_MS", 10000)) * time.Millisecond,

		SearchBackend:   getEnv("SEARCH_BACKEND", BackendSearXNG),
		SearXNGURL:      getEnv("SEARXNG_URL", "http://localhost:9090"),
		OpenSearchURL:   getEnv("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchIndex: getEnv("OPENSEARCH_INDEX", "scraped_pages"),
		SearchTimeout:   time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		CrawlPages:      getEnvBool("CRAWL_PAGES", false),
		CrawlTimeout:    time.Duration(getEnvInt("CRAWL_TIMEOUT_MS", 15000)) * time.Millisecond,
		MaxCrawlers:     getEnvInt("MAX_CRAWLERS", 5),
		MaxContentSize:  int64(getEnvInt("MAX_CONTENT_SIZE", 5*1024*1024)),
		UserAgent:       getEnv("USER_AGENT", "searchstream/1.0"),

		LLMBackend:         getEnv("LLM_BACKEND", BackendOpenAI),
		LLMURL:             getEnv("LLM_URL", "http://localhost:4000"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		ModelName:          getEnv("MODEL_NAME", "gpt-4o-mini"),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		LLMGuardFailures:   getEnvInt("LLM_GUARD_FAILURES", 5),
		LLMGuardCooldown:   time.Duration(getEnvInt("LLM_GUARD_COOLDOWN_MS", 30000)) * time.Millisecond,
		MaxTokensStandard:  getEnvInt("MAX_TOKENS_STANDARD", 2048),
		MaxTokensElevated:  getEnvInt("MAX_TOKENS_ELEVATED", 4096),
		AnswerTemperature:  getEnvFloat("ANSWER_TEMPERATURE", 0.1),
		RelatedTemperature: getEnvFloat("RELATED_TEMPERATURE", 0.1),

		CacheBackend: getEnv("CACHE_BACKEND", BackendMemory),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_SECONDS", 0)) * time.Second,

		StoreBackend: getEnv("STORE_BACKEND", BackendSQLite),
		DatabaseURL:  getEnv("DATABASE_URL", "file:searchstream.db?cache=shared&mode=rwc"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		CounterBackend: getEnv("COUNTER_BACKEND", BackendNoop),
		DynamoDBTable:  getEnv("DYNAMODB_TABLE", ""),

		ImageLimit: getEnvInt("IMAGE_LIMIT", 4),
		TextLimit:  getEnvInt("TEXT_LIMIT", 8),
		IndieDomains: getEnvList("INDIE_DOMAINS", []string{
			"indiehackers.com",
			"producthunt.com",
			"news.ycombinator.com",
		}),
		SideEffectWait:  time.Duration(getEnvInt("SIDE_EFFECT_TIMEOUT_MS", 5000)) * time.Millisecond,
		DefaultCategory: getEnv("DEFAULT_CATEGORY", "all"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.ImageLimit < 1 {
		return fmt.Errorf("IMAGE_LIMIT must be at least 1")
	}
	if c.TextLimit < 1 {
		return fmt.Errorf("TEXT_LIMIT must be at least 1")
	}
	if c.MaxTokensStandard < 1 || c.MaxTokensElevated < 1 {
		return fmt.Errorf("token budgets must be positive")
	}
	if c.MaxCrawlers < 1 {
		return fmt.Errorf("MAX_CRAWLERS must be at least 1")
	}
	switch c.StoreBackend {
	case BackendSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL cannot be empty for the sqlite store")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN cannot be empty for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.SearchBackend {
	case BackendSearXNG, BackendOpenSearch:
	default:
		return fmt.Errorf("unknown SEARCH_BACKEND %q", c.SearchBackend)
	}
	switch c.CacheBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.CounterBackend {
	case BackendNoop, BackendRedis, BackendDynamoDB:
	default:
		return fmt.Errorf("unknown COUNTER_BACKEND %q", c.CounterBackend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
