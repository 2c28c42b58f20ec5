package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string
	JWTSecret     string
	CORSOrigin    string
	// empty disables the snapshot cache
	RedisURL string
	CacheTTL time.Duration
	// empty disables Meilisearch; search then runs on the store
	MeiliURL       string
	MeiliMasterKey string
	// empty disables git history
	HistoryDir string
	SortLocale string
}

func Load() Config {
	return Config{
		Addr:           getenv("API_ADDR", ":8787"),
		DatabaseURL:    getenv("DATABASE_URL", "sqlite://./data/beskar.db"),
		MigrationsDir:  getenv("BESKAR_MIGRATIONS_DIR", ""),
		JWTSecret:      getenv("BESKAR_JWT_SECRET", "beskar-dev-secret"),
		CORSOrigin:     getenv("BESKAR_CORS_ORIGIN", "*"),
		RedisURL:       getenv("REDIS_URL", ""),
		CacheTTL:       time.Duration(getenvInt("BESKAR_CACHE_TTL_SECONDS", 600)) * time.Second,
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		HistoryDir:     getenv("BESKAR_HISTORY_DIR", ""),
		SortLocale:     getenv("BESKAR_SORT_LOCALE", "en"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
