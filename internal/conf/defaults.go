// defaults.go: default configuration values applied before reading the config file.
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for each configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "snapsearch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "snapsearch.log")
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.publicbaseurl", "")

	viper.SetDefault("upload.path", "data/uploads")
	viper.SetDefault("upload.maxsize", 16*1024*1024)
	viper.SetDefault("upload.allowedtypes", []string{"png", "jpg", "jpeg", "gif", "webp"})

	viper.SetDefault("provider.apikey", "")
	viper.SetDefault("provider.baseurl", "https://serpapi.com")
	viper.SetDefault("provider.engine", "google_lens")
	viper.SetDefault("provider.language", "en")
	viper.SetDefault("provider.country", "us")
	viper.SetDefault("provider.maxresults", 30)
	viper.SetDefault("provider.storerawdata", false)
	viper.SetDefault("provider.timeout", 30*time.Second)
	viper.SetDefault("provider.forcehttp2", true)
	viper.SetDefault("provider.retrydelay", time.Second)
	viper.SetDefault("provider.ratelimitwait", 2*time.Second)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("cache.redis.address", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "snapsearch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "snapsearch")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "snapsearch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
