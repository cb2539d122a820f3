package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultStartupOrder is the sequence of services resolved at boot when
// STARTUP_ORDER is not set.
var DefaultStartupOrder = []string{"logger", "metrics", "store"}

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Runtime   RuntimeConfig
	Inspector InspectorConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

type LogConfig struct {
	Level  string // logrus level name
	Format string // text | json
}

// RuntimeConfig tunes the service container and the reactive store.
type RuntimeConfig struct {
	HistoryLimit    int
	ActionSource    string
	NetworkThrottle float64 // NETWORK_STATUS_CHANGED actions per second, 0 disables
	StartupOrder    []string
}

type InspectorConfig struct {
	Enabled          bool
	Addr             string
	MetricsNamespace string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	env := Get("APP_ENV", "local")
	defaultFormat := "text"
	if env == "production" {
		defaultFormat = "json"
	}

	return &Config{
		App: AppConfig{
			Name:  Get("APP_NAME", "Portal"),
			Env:   env,
			Debug: GetBool("APP_DEBUG", true),
		},
		Log: LogConfig{
			Level:  Get("LOG_LEVEL", "info"),
			Format: Get("LOG_FORMAT", defaultFormat),
		},
		Runtime: RuntimeConfig{
			HistoryLimit:    GetInt("STORE_HISTORY_LIMIT", 50),
			ActionSource:    Get("STORE_ACTION_SOURCE", "app"),
			NetworkThrottle: GetFloat("NETWORK_THROTTLE_PER_SEC", 2),
			StartupOrder:    GetList("STARTUP_ORDER", DefaultStartupOrder),
		},
		Inspector: InspectorConfig{
			Enabled:          GetBool("INSPECTOR_ENABLED", false),
			Addr:             Get("INSPECTOR_ADDR", "127.0.0.1:9090"),
			MetricsNamespace: Get("METRICS_NAMESPACE", "portal"),
		},
	}
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
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

// GetFloat returns a float64 env value.
func GetFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// GetList returns a comma-separated env value as a slice, skipping blanks.
//
//	STARTUP_ORDER=logger, store,,theme  →  []string{"logger", "store", "theme"}
func GetList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
