package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestSettings() *Settings {
	return &Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 8090},
		Upload: UploadSettings{
			Path:         "data/uploads",
			MaxSize:      16 * 1024 * 1024,
			AllowedTypes: []string{"png", "jpg"},
		},
		Provider: ProviderSettings{MaxResults: 30},
		Cache:    CacheSettings{Backend: "memory", TTL: time.Hour},
		Output:   OutputSettings{SQLite: SQLiteSettings{Enabled: true, Path: "test.db"}},
	}
}

func TestValidateSettings_Defaults(t *testing.T) {
	require.NoError(t, ValidateSettings(defaultTestSettings()))
}

func TestValidateSettings_InvalidPort(t *testing.T) {
	s := defaultTestSettings()
	s.Server.Port = 0
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettings_BadCacheBackend(t *testing.T) {
	s := defaultTestSettings()
	s.Cache.Backend = "memcached"
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache backend")
}

func TestValidateSettings_NoDatabase(t *testing.T) {
	s := defaultTestSettings()
	s.Output.SQLite.Enabled = false
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettings_BothDatabases(t *testing.T) {
	s := defaultTestSettings()
	s.Output.MySQL.Enabled = true
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettings_ZeroMaxResults(t *testing.T) {
	s := defaultTestSettings()
	s.Provider.MaxResults = 0
	assert.Error(t, ValidateSettings(s))
}
