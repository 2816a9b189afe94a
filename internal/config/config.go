package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultProviderBaseURL = "https://api.studio.nebius.com/v1/"

// Log store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverNone     = "none"
)

type Config struct {
	Server     ServerConfig
	Provider   ProviderConfig
	FineTuning FineTuningConfig
	LogStore   LogStoreConfig
	Logger     LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type FineTuningConfig struct {
	// StrictProcessing fails an upload whose file never reaches "processed".
	StrictProcessing bool
	ValidateJSONL    bool

	UploadPollAttempts  int
	UploadPollDelay     time.Duration
	RecheckPollAttempts int
	RecheckPollDelay    time.Duration

	DownloadDir string
}

type LogStoreConfig struct {
	Driver          string
	DatabaseURL     string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment. Values in .env.local and
// .env are applied first without overriding variables that are already set.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env.local", ".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, err
		}
	}

	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("NEBIUS_API_ENDPOINT", DefaultProviderBaseURL)
	v.SetDefault("PROVIDER_TIMEOUT", "120s")
	v.SetDefault("FINETUNE_STRICT_PROCESSING", false)
	v.SetDefault("FINETUNE_VALIDATE_JSONL", false)
	v.SetDefault("UPLOAD_POLL_ATTEMPTS", 10)
	v.SetDefault("UPLOAD_POLL_DELAY", "2s")
	v.SetDefault("RECHECK_POLL_ATTEMPTS", 5)
	v.SetDefault("RECHECK_POLL_DELAY", "3s")
	v.SetDefault("DOWNLOAD_DIR", os.TempDir())
	v.SetDefault("LOG_STORE_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_PATH", "data/studio.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	databaseURL := v.GetString("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = v.GetString("SUPABASE_DB_URL")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Provider: ProviderConfig{
			APIKey:  v.GetString("NEBIUS_API_KEY"),
			BaseURL: normalizeBaseURL(v.GetString("NEBIUS_API_ENDPOINT")),
			Timeout: duration(v, "PROVIDER_TIMEOUT", 120*time.Second),
		},
		FineTuning: FineTuningConfig{
			StrictProcessing:    v.GetBool("FINETUNE_STRICT_PROCESSING"),
			ValidateJSONL:       v.GetBool("FINETUNE_VALIDATE_JSONL"),
			UploadPollAttempts:  v.GetInt("UPLOAD_POLL_ATTEMPTS"),
			UploadPollDelay:     duration(v, "UPLOAD_POLL_DELAY", 2*time.Second),
			RecheckPollAttempts: v.GetInt("RECHECK_POLL_ATTEMPTS"),
			RecheckPollDelay:    duration(v, "RECHECK_POLL_DELAY", 3*time.Second),
			DownloadDir:         v.GetString("DOWNLOAD_DIR"),
		},
		LogStore: LogStoreConfig{
			Driver:          strings.ToLower(v.GetString("LOG_STORE_DRIVER")),
			DatabaseURL:     databaseURL,
			SQLitePath:      v.GetString("SQLITE_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: duration(v, "DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}

// MissingRequired lists required settings that are unset.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.Provider.APIKey == "" {
		missing = append(missing, "NEBIUS_API_KEY")
	}
	if c.LogStore.Driver == DriverPostgres && c.LogStore.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	return missing
}

func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func normalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		u = DefaultProviderBaseURL
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
