package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultPublicBaseURL はPUBLIC_BASE_URL未設定時のフォールバック。
// コールバックURLの組み立てに使用される。
const defaultPublicBaseURL = "http://localhost:3000"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider
	IdentityProviderURL string
	IdentityJWTSecret   string

	// Workflow Engine
	WorkflowEngineURL string
	WorkflowAPIKey    string

	// Session
	SessionMaxAge int

	// Brand
	BrandDefaultsPath string

	// Job
	JobStaleAfter  time.Duration
	EngineTimeout  time.Duration
	PreviewTimeout time.Duration
	PreviewMaxSize int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitJobInit int

	// Server
	ServerPort    string
	PublicBaseURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// PUBLIC_BASE_URLのみ未設定時にハードコードされたデフォルトへフォールバックする。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdentityProviderURL = os.Getenv("IDENTITY_PROVIDER_URL")
	if cfg.IdentityProviderURL == "" {
		missing = append(missing, "IDENTITY_PROVIDER_URL")
	}

	cfg.IdentityJWTSecret = os.Getenv("IDENTITY_JWT_SECRET")
	if cfg.IdentityJWTSecret == "" {
		missing = append(missing, "IDENTITY_JWT_SECRET")
	}

	cfg.WorkflowEngineURL = os.Getenv("WORKFLOW_ENGINE_URL")
	if cfg.WorkflowEngineURL == "" {
		missing = append(missing, "WORKFLOW_ENGINE_URL")
	}

	cfg.WorkflowAPIKey = os.Getenv("WORKFLOW_API_KEY")
	if cfg.WorkflowAPIKey == "" {
		missing = append(missing, "WORKFLOW_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BrandDefaultsPath = getEnvString("BRAND_DEFAULTS_PATH", "")
	cfg.JobStaleAfter = getEnvDuration("JOB_STALE_AFTER", 30*time.Minute)
	cfg.EngineTimeout = getEnvDuration("ENGINE_TIMEOUT", 15*time.Second)
	cfg.PreviewTimeout = getEnvDuration("PREVIEW_TIMEOUT", 10*time.Second)
	cfg.PreviewMaxSize = getEnvInt64("PREVIEW_MAX_SIZE", 2097152)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitJobInit = getEnvInt("RATE_LIMIT_JOB_INIT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.PublicBaseURL = getEnvString("PUBLIC_BASE_URL", defaultPublicBaseURL)
	cfg.CookieSecure = strings.HasPrefix(cfg.PublicBaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
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
