package config

import (
	"fmt"
	"time"

	"github.com/rpattn/orgstage/internal/db"
	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// RedisConfig holds cache settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DirectoryConfig holds the outbound directory API settings.
type DirectoryConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// CacheConfig holds TTLs for the cached derived views.
type CacheConfig struct {
	OrgChartTTL      time.Duration
	ProfileFieldsTTL time.Duration
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig
	Database  db.Config
	Redis     RedisConfig
	Directory DirectoryConfig
	Cache     CacheConfig
}

// Load reads config.yaml from configPath, with environment overrides
// (ORGSTAGE_DATABASE_HOST, ORGSTAGE_DIRECTORY_TOKEN, ...).
func Load(configPath string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: db.DefaultConfig(),
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Directory: DirectoryConfig{
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			OrgChartTTL:      5 * time.Minute,
			ProfileFieldsTTL: 10 * time.Minute,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("ORGSTAGE")

	for _, key := range []string{
		"server.addr", "server.allowed_origins",
		"database.host", "database.port", "database.user",
		"database.password", "database.dbname", "database.sslmode",
		"redis.addr", "redis.password", "redis.db",
		"directory.base_url", "directory.token", "directory.timeout",
		"cache.org_chart_ttl", "cache.profile_fields_ttl",
	} {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Use defaults + env.
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("redis.addr") {
		cfg.Redis.Addr = v.GetString("redis.addr")
	}
	if v.IsSet("redis.password") {
		cfg.Redis.Password = v.GetString("redis.password")
	}
	if v.IsSet("redis.db") {
		cfg.Redis.DB = v.GetInt("redis.db")
	}
	if v.IsSet("directory.base_url") {
		cfg.Directory.BaseURL = v.GetString("directory.base_url")
	}
	if v.IsSet("directory.token") {
		cfg.Directory.Token = v.GetString("directory.token")
	}
	if v.IsSet("directory.timeout") {
		cfg.Directory.Timeout = v.GetDuration("directory.timeout")
	}
	if v.IsSet("cache.org_chart_ttl") {
		cfg.Cache.OrgChartTTL = v.GetDuration("cache.org_chart_ttl")
	}
	if v.IsSet("cache.profile_fields_ttl") {
		cfg.Cache.ProfileFieldsTTL = v.GetDuration("cache.profile_fields_ttl")
	}

	return cfg, nil
}
