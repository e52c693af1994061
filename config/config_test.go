package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 4, cfg.ImageLimit)
	assert.Equal(t, 8, cfg.TextLimit)
	assert.Equal(t, []string{"indiehackers.com", "producthunt.com", "news.ycombinator.com"}, cfg.IndieDomains)
	assert.Equal(t, 0.1, cfg.AnswerTemperature)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMAGE_LIMIT", "6")
	t.Setenv("INDIE_DOMAINS", " a.com, ,b.com ")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("CRAWL_PAGES", "true")
	t.Setenv("TEXT_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 6, cfg.ImageLimit)
	assert.Equal(t, 8, cfg.TextLimit)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.IndieDomains)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.CrawlPages)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"text limit", func(c *Config) { c.TextLimit = 0 }},
		{"negative images", func(c *Config) { c.ImageLimit = -1 }},
		{"postgres without dsn", func(c *Config) { c.StoreBackend = BackendPostgres }},
		{"unknown store", func(c *Config) { c.StoreBackend = "mongo" }},
		{"unknown search", func(c *Config) { c.SearchBackend = "bing" }},
		{"unknown cache", func(c *Config) { c.CacheBackend = "memcached" }},
		{"unknown counter", func(c *Config) { c.CounterBackend = "statsd" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Load()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
