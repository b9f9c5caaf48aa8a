package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	PersistenceBackends = []string{"file", "sqlite", "memory"}
	RemoteBackends      = []string{"none", "memory", "drive", "sheets", "gcs", "azure"}
	LogLevels           = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	LogLevel string

	// Local persistence
	PersistenceBackend string
	DataDir            string
	StorageKey         string
	SQLiteDBPath       string

	// Remote backup
	RemoteBackend    string
	BackupDebounce   time.Duration
	BackupTimeout    time.Duration
	BackupObjectName string
	FlushOnShutdown  bool

	// Google (Drive and Sheets remotes)
	GoogleSpreadsheetID   string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	// Cloud object stores
	GCSBucket           string
	AzureBlobServiceURL string
	AzureBlobContainer  string

	// AMQP change events; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Summary cache
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),

		PersistenceBackend: getEnv("PERSISTENCE_BACKEND", "file"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		StorageKey:         getEnv("STORAGE_KEY", "moneylog-data"),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/moneylog.db"),

		RemoteBackend:    getEnv("REMOTE_BACKEND", "none"),
		BackupDebounce:   getEnvDuration("BACKUP_DEBOUNCE", 2*time.Second),
		BackupTimeout:    getEnvDuration("BACKUP_TIMEOUT", 30*time.Second),
		BackupObjectName: getEnv("BACKUP_OBJECT_NAME", ""),
		FlushOnShutdown:  getEnvBool("BACKUP_FLUSH_ON_SHUTDOWN", false),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		GCSBucket:           getEnv("GCS_BUCKET", ""),
		AzureBlobServiceURL: getEnv("AZURE_BLOB_SERVICE_URL", ""),
		AzureBlobContainer:  getEnv("AZURE_BLOB_CONTAINER", "moneylog"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneylog"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 64),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// EventsEnabled reports whether ledger changes are published over AMQP.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(LogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, LogLevels))
	}

	if c.StorageKey == "" {
		errors = append(errors, "storage key cannot be empty")
	}

	switch c.PersistenceBackend {
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file persistence")
		} else if err := ensureDir(c.DataDir); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite persistence")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := ensureDir(dir); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid persistence backend '%s': must be one of %v", c.PersistenceBackend, PersistenceBackends))
	}

	errors = append(errors, c.validateRemote()...)

	if c.BackupDebounce < 100*time.Millisecond || c.BackupDebounce > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backup debounce %v: must be between 100ms and 10m", c.BackupDebounce))
	}
	if c.BackupTimeout < time.Second || c.BackupTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backup timeout %v: must be between 1s and 10m", c.BackupTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SummaryCacheSize < 1 || c.SummaryCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be between 1 and 10000", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at least 1 second", c.SummaryCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) validateRemote() []string {
	var errors []string

	switch c.RemoteBackend {
	case "none", "memory":
	case "drive", "sheets":
		if c.RemoteBackend == "sheets" && c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets remote")
		}

		hasClientFile := c.GoogleOAuthClientFile != ""
		if !hasClientFile && c.GoogleOAuthClientJSON == "" {
			errors = append(errors, fmt.Sprintf("either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for %s remote", c.RemoteBackend))
		}
		hasTokenFile := c.GoogleOAuthTokenFile != ""
		if !hasTokenFile && c.GoogleOAuthTokenJSON == "" {
			errors = append(errors, fmt.Sprintf("either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for %s remote", c.RemoteBackend))
		}

		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	case "gcs":
		if c.GCSBucket == "" {
			errors = append(errors, "GCS bucket is required when using gcs remote")
		}
	case "azure":
		if c.AzureBlobServiceURL == "" {
			errors = append(errors, "Azure blob service URL is required when using azure remote")
		} else if u, err := url.Parse(c.AzureBlobServiceURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			errors = append(errors, fmt.Sprintf("invalid Azure blob service URL '%s': must be http(s)", c.AzureBlobServiceURL))
		}
		if c.AzureBlobContainer == "" {
			errors = append(errors, "Azure blob container is required when using azure remote")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, RemoteBackends))
	}

	return errors
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
