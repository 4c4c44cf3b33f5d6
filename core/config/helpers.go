package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the non-secret settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":               Global.App.Version,
		"app_debug":                 Global.App.Debug,
		"ai_provider":               Global.AI.Provider,
		"ai_model":                  Global.AI.Model,
		"ai_timeout_ms":             Global.AI.Timeout.Milliseconds(),
		"cache_max_entries":         Global.Cache.MaxEntries,
		"cache_ttl_minutes":         Global.Cache.TTL.Minutes(),
		"rate_limit_max":            Global.RateLimit.Max,
		"rate_limit_window_ms":      Global.RateLimit.Window.Milliseconds(),
		"taxonomy_max_age_hours":    Global.Taxonomy.MaxAge.Hours(),
		"valkey_enabled":            Global.Database.ValkeyEnabled,
		"query_max_length":          Global.App.QueryMaxLength,
		"shopify_api_version":       Global.Catalog.ShopifyAPIVersion,
		"worker_pool_size":          Global.Worker.Size,
		"worker_queue_size":         Global.Worker.QueueSize,
		"token_sealing":             Global.Security.SecretKey != "",
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
