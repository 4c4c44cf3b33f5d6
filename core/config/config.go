package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	MCP       MCPConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	AI        AIConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Taxonomy  TaxonomyConfig
	Catalog   CatalogConfig
	Worker    WorkerPoolConfig
	APIKeys   APIKeysConfig
	Security  SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	QueryMaxLength     int
}

type MCPConfig struct {
	Port string
	Host string
}

type PathsConfig struct {
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	SSLMode         string // Postgres only
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type AIConfig struct {
	Provider string // openai | gemini
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

type RateLimitConfig struct {
	Max           int
	Window        time.Duration
	SweepInterval time.Duration
}

type TaxonomyConfig struct {
	MaxAge       time.Duration
	RetryBackoff time.Duration
}

type CatalogConfig struct {
	ShopifyAPIVersion string
	RequestsPerSecond float64
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type SecurityConfig struct {
	SecretKey string // seals shop access tokens at rest; empty stores them as-is
}

type APIKeysConfig struct {
	Gemini string
	OpenAI string
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	storages := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"*"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
		QueryMaxLength:     getEnvInt("QUERY_MAX_LENGTH", 500),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(storages, "smartfilter.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "smartfilter:"),
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", "openai"))
	defaultModel := "gpt-4o-mini"
	if provider == "gemini" {
		defaultModel = "gemini-2.5-flash"
	}
	aiCfg := AIConfig{
		Provider: provider,
		Model:    getEnv("AI_MODEL", defaultModel),
		BaseURL:  getEnv("AI_BASE_URL", ""),
		Timeout:  time.Duration(getEnvInt("AI_TIMEOUT_MS", 8000)) * time.Millisecond,
	}

	cfg := &Config{
		App:      appCfg,
		MCP:      MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		Paths:    PathsConfig{Storages: storages},
		Database: dbCfg,
		AI:       aiCfg,
		Cache: CacheConfig{
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 500),
			TTL:        time.Duration(getEnvInt("CACHE_TTL_MINUTES", 30)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Max:           getEnvInt("RATE_LIMIT_MAX", 30),
			Window:        time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
			SweepInterval: time.Duration(getEnvInt("RATE_LIMIT_SWEEP_SECONDS", 60)) * time.Second,
		},
		Taxonomy: TaxonomyConfig{
			MaxAge:       time.Duration(getEnvInt("TAXONOMY_MAX_AGE_HOURS", 6)) * time.Hour,
			RetryBackoff: time.Duration(getEnvInt("TAXONOMY_RETRY_BACKOFF_MINUTES", 5)) * time.Minute,
		},
		Catalog: CatalogConfig{
			ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-10"),
			RequestsPerSecond: getEnvFloat("SHOPIFY_REQUESTS_PER_SECOND", 2),
		},
		Worker: WorkerPoolConfig{
			Size:      getEnvInt("WORKER_POOL_SIZE", 4),
			QueueSize: getEnvInt("WORKER_QUEUE_SIZE", 256),
		},
		APIKeys: APIKeysConfig{
			Gemini: getEnv("GEMINI_API_KEY", ""),
			OpenAI: getEnv("OPENAI_API_KEY", ""),
		},
		Security: SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "")},
	}

	Global = cfg
	return cfg, nil
}

// APIKey returns the key matching the configured AI provider.
func (c *Config) APIKey() string {
	if c.AI.Provider == "gemini" {
		return c.APIKeys.Gemini
	}
	return c.APIKeys.OpenAI
}
