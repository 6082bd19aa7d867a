package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultAPIURL is used when KUMBO_API_URL is not set.
const DefaultAPIURL = "https://api.kumboarchives.org"

type Config struct {
	Env       string
	APIPrefix string

	API       APIConfig
	Log       LogConfig
	Session   SessionConfig
	Analytics AnalyticsConfig
	Upload    UploadConfig
	Search    SearchConfig
	Mock      MockServerConfig
}

// APIConfig points the client at the archive backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig locates the persisted token/user side-channel.
type SessionConfig struct {
	Dir string
}

// AnalyticsConfig tunes staleness windows for the analytics store.
type AnalyticsConfig struct {
	DashboardTTL time.Duration
}

// UploadConfig bounds the upload queue.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	AutoClearDelay   time.Duration
	Categories       []string
}

// SearchConfig tunes search-as-you-type behaviour.
type SearchConfig struct {
	DebounceInterval time.Duration
}

// MockServerConfig configures the development fixture server.
type MockServerConfig struct {
	Port           int
	JWTSecret      string
	JWTExpiration  time.Duration
	AllowedOrigins []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.API = APIConfig{
		BaseURL: v.GetString("KUMBO_API_URL"),
		Timeout: parseDuration(v.GetString("API_TIMEOUT"), 30*time.Second),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Session = SessionConfig{Dir: v.GetString("SESSION_DIR")}
	if cfg.Session.Dir == "" {
		cfg.Session.Dir = defaultSessionDir()
	}

	cfg.Analytics = AnalyticsConfig{
		DashboardTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	maxUploadSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 50 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
		AutoClearDelay:   parseDuration(v.GetString("UPLOAD_AUTO_CLEAR_DELAY"), 3*time.Second),
		Categories:       splitAndTrim(v.GetString("UPLOAD_CATEGORIES")),
	}
	if len(cfg.Upload.Categories) == 0 {
		cfg.Upload.Categories = []string{"Administrative", "Historical", "Legal", "Research"}
	}

	cfg.Search = SearchConfig{
		DebounceInterval: parseDuration(v.GetString("SEARCH_DEBOUNCE_INTERVAL"), 300*time.Millisecond),
	}

	cfg.Mock = MockServerConfig{
		Port:           v.GetInt("MOCK_PORT"),
		JWTSecret:      v.GetString("MOCK_JWT_SECRET"),
		JWTExpiration:  parseDuration(v.GetString("MOCK_JWT_EXPIRATION"), 24*time.Hour),
		AllowedOrigins: splitAndTrim(v.GetString("MOCK_ALLOWED_ORIGINS")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("KUMBO_API_URL", DefaultAPIURL)
	v.SetDefault("API_TIMEOUT", "30s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SESSION_DIR", "")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 50*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png,image/tiff,application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	v.SetDefault("UPLOAD_AUTO_CLEAR_DELAY", "3s")
	v.SetDefault("UPLOAD_CATEGORIES", "")

	v.SetDefault("SEARCH_DEBOUNCE_INTERVAL", "300ms")

	v.SetDefault("MOCK_PORT", 8080)
	v.SetDefault("MOCK_JWT_SECRET", "dev_secret")
	v.SetDefault("MOCK_JWT_EXPIRATION", "24h")
	v.SetDefault("MOCK_ALLOWED_ORIGINS", "")
}

func defaultSessionDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".kumbo"
	}
	return filepath.Join(base, "kumbo")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
