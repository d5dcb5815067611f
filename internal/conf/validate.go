package conf

import (
	"fmt"
	"strings"
)

// ValidateSettings checks the loaded settings for configuration mistakes
// that would break the service at runtime.
func ValidateSettings(settings *Settings) error {
	if settings.Server.Port < 1 || settings.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", settings.Server.Port)
	}

	if settings.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload.maxsize must be positive, got %d", settings.Upload.MaxSize)
	}
	if len(settings.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("upload.allowedtypes must not be empty")
	}

	if settings.Provider.MaxResults < 1 {
		return fmt.Errorf("provider.maxresults must be at least 1, got %d", settings.Provider.MaxResults)
	}

	switch strings.ToLower(settings.Cache.Backend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend: %q (must be memory or redis)", settings.Cache.Backend)
	}
	if settings.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", settings.Cache.TTL)
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return fmt.Errorf("no database output enabled, enable output.sqlite or output.mysql")
	}
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return fmt.Errorf("only one database output may be enabled at a time")
	}

	return nil
}
