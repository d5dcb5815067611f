// config.go: defines the settings struct for the snapsearch service and the
// functions to load settings from file, environment and defaults.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for the main application log file.
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
	MaxSize int64  // max log file size in bytes before rotation
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // application instance name
	Log  LogConfig // main log file settings
}

// ServerSettings contains settings for the HTTP API server.
type ServerSettings struct {
	Host          string // address to bind to
	Port          int    // port to listen on
	PublicBaseURL string // public base URL used to build absolute upload URLs for the provider
}

// UploadSettings contains settings for image uploads.
type UploadSettings struct {
	Path         string   // directory for uploaded images
	MaxSize      int64    // maximum upload size in bytes
	AllowedTypes []string // allowed file extensions, without dot
}

// ProviderSettings contains settings for the reverse-image-search provider.
type ProviderSettings struct {
	APIKey        string        // provider API credential, empty disables outbound search
	BaseURL       string        // provider endpoint base URL
	Engine        string        // provider engine identifier
	Language      string        // hl locale parameter
	Country       string        // gl locale parameter
	MaxResults    int           // cap on returned products per search
	StoreRawData  bool          // persist raw provider payload per result
	Timeout       time.Duration // per-request timeout for provider calls
	ForceHTTP2    bool          // attempt HTTP/2 on the provider connection
	RetryDelay    time.Duration // base backoff delay for transport/5xx retries
	RateLimitWait time.Duration // fallback wait when a 429 carries no hint
}

// RedisSettings contains connection settings for the shared cache backend.
type RedisSettings struct {
	Address  string // host:port of the redis server
	Password string
	DB       int
}

// CacheSettings contains settings for the search result cache.
type CacheSettings struct {
	Enabled bool          // true to cache provider results
	Backend string        // "memory" or "redis"
	TTL     time.Duration // entry time-to-live
	Redis   RedisSettings // shared backend connection settings
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Enabled bool
	Path    string // path to database file
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings groups the persistence backends.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug bool // true to enable debug logging

	Main     MainSettings
	Server   ServerSettings
	Upload   UploadSettings
	Provider ProviderSettings
	Cache    CacheSettings
	Output   OutputSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and stores it as the process-wide instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with defaults and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("snapsearch")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file is fine, defaults and env vars apply
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// Setting returns the current settings instance, loading it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetSettings returns the current settings instance without triggering a load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings writes the current settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to yaml: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
