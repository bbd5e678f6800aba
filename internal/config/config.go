// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// 実行環境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	AppEnv string

	// Database（空の場合はインメモリストアで起動する）
	DatabaseURL string

	// Session
	SessionMaxAge        time.Duration
	SessionMaxEntries    int
	SessionSweepInterval time.Duration

	// Password hashing
	HashMaxConcurrent int

	// Resource sync
	ResourceFeedURLs     []string
	ResourceSyncInterval time.Duration
	FetchTimeout         time.Duration
	FetchMaxSize         int64

	// Rate Limit（1分あたり・IP単位）
	RateLimitAuth int

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 値の形式が不正な数値・期間はデフォルト値にフォールバックし、
// APP_ENVとLOG_LEVELが不正な場合のみエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AppEnv = getEnvString("APP_ENV", EnvDevelopment)
	if cfg.AppEnv != EnvDevelopment && cfg.AppEnv != EnvProduction {
		return nil, fmt.Errorf("invalid APP_ENV %q: must be %s or %s", cfg.AppEnv, EnvDevelopment, EnvProduction)
	}

	level, err := parseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SessionMaxAge = time.Duration(getEnvInt("SESSION_MAX_AGE", 604800)) * time.Second
	cfg.SessionMaxEntries = getEnvInt("SESSION_MAX_ENTRIES", 10000)
	cfg.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour)
	cfg.HashMaxConcurrent = getEnvInt("HASH_MAX_CONCURRENT", 0)
	cfg.ResourceFeedURLs = getEnvList("RESOURCE_FEED_URLS")
	cfg.ResourceSyncInterval = getEnvDuration("RESOURCE_SYNC_INTERVAL", 6*time.Hour)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = cfg.AppEnv != EnvDevelopment
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

// UsesPostgres はPostgreSQLバックエンドを使用するかを返す。
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
