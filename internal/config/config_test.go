package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "DATABASE_URL", "REDIS_URL", "BESKAR_CACHE_TTL_SECONDS", "BESKAR_SORT_LOCALE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Addr != ":8787" || cfg.DatabaseURL != "sqlite://./data/beskar.db" || cfg.RedisURL != "" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.CacheTTL != 10*time.Minute || cfg.SortLocale != "en" {
		t.Fatalf("Load() = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BESKAR_CACHE_TTL_SECONDS", "30")
	t.Setenv("BESKAR_SORT_LOCALE", "sv")
	t.Setenv("MEILI_URL", "http://meili:7700")
	cfg := Load()
	if cfg.CacheTTL != 30*time.Second || cfg.SortLocale != "sv" || cfg.MeiliURL != "http://meili:7700" {
		t.Fatalf("Load() = %+v", cfg)
	}
}

func TestLoadIgnoresBadInt(t *testing.T) {
	t.Setenv("BESKAR_CACHE_TTL_SECONDS", "soon")
	if cfg := Load(); cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("CacheTTL = %v", cfg.CacheTTL)
	}
}
