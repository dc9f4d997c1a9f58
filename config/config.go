// Package config loads pagelet server configuration from environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment constants.
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// Config provides the configuration of a pagelet server.
type Config struct {
	// AppName is the application name, used for the env var prefix and the
	// cache database filename.
	AppName string `mapstructure:"appname"`

	// Environment: development, production, or test.
	Environment string `mapstructure:"environment"`

	// Port for the HTTP server.
	Port string `mapstructure:"port"`

	// Debug enables debug mode.
	Debug bool `mapstructure:"debug"`

	// Logging configuration.
	LogLevel       string `mapstructure:"loglevel"`
	LogsDirectory  string `mapstructure:"logsdirectory"`
	LogsMaxSizeMB  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeDays int    `mapstructure:"logsmaxageindays"`

	// Resolution cache configuration.
	CacheEnabled    bool   `mapstructure:"cacheenabled"`
	CacheBackend    string `mapstructure:"cachebackend"` // memory or database
	CacheTTLSeconds int    `mapstructure:"cachettlseconds"`
	CacheMaxEntries int64  `mapstructure:"cachemaxentries"`

	// Rendering configuration.
	MaxConcurrentRenders int `mapstructure:"maxconcurrentrenders"`
	InstancePoolSize     int `mapstructure:"instancepoolsize"`

	// Data and cache database configuration.
	DataDirectory    string `mapstructure:"datadirectory"`
	DatabaseDriver   string `mapstructure:"databasedriver"` // sqlite or postgres
	DatabaseDSN      string `mapstructure:"databasedsn"`
	DatabaseFilename string `mapstructure:"databasefilename"`
	DatabasePath     string `mapstructure:"-"` // Resolved path, not from env

	// Internal: the env var prefix (derived from AppName).
	envPrefix string
}

// Load creates a new Config for the given app name.
// It reads from environment variables prefixed with the uppercase app name.
// Example: Load("myapp") reads MYAPP_ENV, MYAPP_PORT, etc.
func Load(appName string) (*Config, error) {
	v := viper.New()

	// Normalize app name
	appName = strings.ToLower(strings.TrimSpace(appName))
	if appName == "" {
		appName = "app"
	}
	prefix := strings.ToUpper(appName)

	// Read .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	setDefaults(v, appName)

	v.SetEnvPrefix(prefix)
	bindEnvVars(v, prefix)

	cfg := &Config{envPrefix: prefix}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.DatabasePath = cfg.resolveDatabasePath()

	cfg.ensureDirectories()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, appName string) {
	v.SetDefault("appname", appName)
	v.SetDefault("environment", Production)
	v.SetDefault("port", "8080")
	v.SetDefault("debug", false)

	v.SetDefault("loglevel", "error")
	v.SetDefault("logsdirectory", "storage/logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)

	v.SetDefault("cacheenabled", true)
	v.SetDefault("cachebackend", "memory")
	v.SetDefault("cachettlseconds", 86400)
	v.SetDefault("cachemaxentries", 0)

	v.SetDefault("maxconcurrentrenders", 8)
	v.SetDefault("instancepoolsize", 256)

	v.SetDefault("datadirectory", "storage")
	v.SetDefault("databasedriver", "sqlite")
	v.SetDefault("databasefilename", appName+".db")
}

func bindEnvVars(v *viper.Viper, prefix string) {
	// Core env vars: {PREFIX}_ENV, {PREFIX}_PORT, etc.
	v.BindEnv("environment", prefix+"_ENV")
	v.BindEnv("port", prefix+"_PORT")
	v.BindEnv("loglevel", prefix+"_LOG_LEVEL")
	v.BindEnv("logsdirectory", prefix+"_LOGS_DIR")
	v.BindEnv("datadirectory", prefix+"_DATA_DIR")
	v.BindEnv("debug", prefix+"_DEBUG")
	v.BindEnv("cacheenabled", prefix+"_CACHE_ENABLED")
	v.BindEnv("cachebackend", prefix+"_CACHE_BACKEND")
	v.BindEnv("cachettlseconds", prefix+"_CACHE_TTL_SECONDS")
	v.BindEnv("cachemaxentries", prefix+"_CACHE_MAX_ENTRIES")
	v.BindEnv("maxconcurrentrenders", prefix+"_MAX_CONCURRENT_RENDERS")
	v.BindEnv("instancepoolsize", prefix+"_INSTANCE_POOL_SIZE")
	v.BindEnv("databasedriver", prefix+"_DATABASE_DRIVER")
	v.BindEnv("databasedsn", prefix+"_DATABASE_DSN")
}

func (c *Config) validate() error {
	var problems []string

	// Adjust log level for development
	if c.LogLevel == "" || c.LogLevel == "error" {
		if c.IsDevelopment() || c.IsTest() {
			c.LogLevel = "info"
		}
	}

	switch c.Environment {
	case Development, Production, Test:
	default:
		problems = append(problems, fmt.Sprintf("invalid %s_ENV value %q", c.envPrefix, c.Environment))
	}

	switch c.CacheBackend {
	case "memory", "database":
	default:
		problems = append(problems, fmt.Sprintf("invalid %s_CACHE_BACKEND value %q (memory or database)", c.envPrefix, c.CacheBackend))
	}

	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("invalid %s_DATABASE_DRIVER value %q (sqlite or postgres)", c.envPrefix, c.DatabaseDriver))
	}

	if c.CacheBackend == "database" && c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		problems = append(problems, fmt.Sprintf("%s_DATABASE_DSN is REQUIRED for a postgres-backed cache", c.envPrefix))
	}

	if c.MaxConcurrentRenders < 0 {
		problems = append(problems, fmt.Sprintf("%s_MAX_CONCURRENT_RENDERS must not be negative", c.envPrefix))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) resolveDatabasePath() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseDSN
	}
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}

	filename := c.DatabaseFilename
	if filename == "" {
		filename = c.AppName + ".db"
	}

	// Add environment suffix: app.development.db, app.test.db, app.production.db
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	if ext == "" {
		ext = ".db"
	}
	filename = fmt.Sprintf("%s.%s%s", base, c.Environment, ext)

	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.DataDirectory, filename)
}

func (c *Config) ensureDirectories() {
	dirs := []string{c.DataDirectory, c.LogsDirectory}
	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Printf("config: failed to create directory %q: %v", dir, err)
			}
		}
	}
}

// Environment checks.

func (c *Config) IsDevelopment() bool { return c.Environment == Development }
func (c *Config) IsProduction() bool  { return c.Environment == Production }
func (c *Config) IsTest() bool        { return c.Environment == Test }
