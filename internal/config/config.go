package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Providers
	Provider        string // "live" or "fake"
	FMPBaseURL      string
	FMPAPIKey       string
	AlphaBaseURL    string
	AlphaAPIKey     string
	AlphaThrottle   time.Duration
	RequestTimeout  time.Duration
	// Quote cache
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	QuoteTTL       time.Duration
	CacheRetention time.Duration
	// Snapshot worker
	SnapshotInterval time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func durMS(key string, defMS int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(defMS)), defMS)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:              getEnv("ENV", "local"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		Provider:         getEnv("PROVIDER", "fake"),
		FMPBaseURL:       getEnv("FMP_API_BASE", "https://financialmodelingprep.com/api/v3"),
		FMPAPIKey:        getEnv("FMP_API_KEY", ""),
		AlphaBaseURL:     getEnv("ALPHA_VANTAGE_API_BASE", "https://www.alphavantage.co"),
		AlphaAPIKey:      getEnv("ALPHA_VANTAGE_API_KEY", ""),
		AlphaThrottle:    durMS("ALPHA_VANTAGE_THROTTLE_MS", 1200),
		RequestTimeout:   durMS("REQUEST_TIMEOUT_MS", 4000),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          atoiDef(getEnv("REDIS_DB", "0"), 0),
		QuoteTTL:         durMS("QUOTE_TTL_MS", 15*60*1000),
		CacheRetention:   durMS("CACHE_RETENTION_MS", 7*24*60*60*1000),
		SnapshotInterval: durMS("SNAPSHOT_INTERVAL_MS", 24*60*60*1000),
	}
}
