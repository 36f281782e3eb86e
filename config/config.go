package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/whisperyapp/server/cache"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	// Cache reuses the cache package's own config type so the loaded
	// struct can be handed to cache.NewCache directly.
	Cache cache.CacheConfig `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Media    MediaConfig    `mapstructure:"media"`
	Social   SocialConfig   `mapstructure:"social"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	Mode        string        `mapstructure:"mode"` // sqlite | mysql | postgres
	SQLitePath  string        `mapstructure:"sqlite_path"`
	MySQLDSN    string        `mapstructure:"mysql_dsn"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLife     time.Duration `mapstructure:"max_life"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the CORS origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminIPs restricts admin routes to these client IPs when non-empty.
	AdminIPs []string `mapstructure:"admin_ips"`
}

type MediaConfig struct {
	// Dir is where uploaded audio clips are stored and served from.
	Dir         string `mapstructure:"dir"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

type SocialConfig struct {
	// NearbyRadiusDeg bounds the pin "nearby" query box in degrees.
	NearbyRadiusDeg float64 `mapstructure:"nearby_radius_deg"`
	MaxPageSize     int     `mapstructure:"max_page_size"`
}

type NotifyConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// Retention is how long read notifications are kept before the
	// cleanup task deletes them.
	Retention time.Duration `mapstructure:"retention"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/whispery.db")
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("security.jwt_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("media.dir", "./data/media")
	v.SetDefault("media.max_upload_mb", 10)
	v.SetDefault("social.nearby_radius_deg", 0.05)
	v.SetDefault("social.max_page_size", 50)
	v.SetDefault("notify.buffer_size", 1024)
	v.SetDefault("notify.flush_interval", "2s")
	v.SetDefault("notify.retention", "720h")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
