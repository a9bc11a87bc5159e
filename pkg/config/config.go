// Package config loads and saves the tilewarp configuration file.
//
// Configuration lives in a TOML file at ~/.config/tilewarp/config.toml
// (or $XDG_CONFIG_HOME/tilewarp/config.toml). Every file setting can be
// overridden with a TILEWARP_* environment variable, so scripted use
// never needs a config file at all.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tilewarp/pkg/errors"
)

const appName = "tilewarp"

// Duration wraps time.Duration so TOML files can carry values like "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText encodes the duration in Go's duration syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all tilewarp settings.
type Config struct {
	Render RenderConfig `toml:"render"`
	Mongo  MongoConfig  `toml:"mongo"`
	Redis  RedisConfig  `toml:"redis"`
	Cache  CacheConfig  `toml:"cache"`
}

// RenderConfig selects the render web service and the default stack
// coordinates used when a command does not name them explicitly.
type RenderConfig struct {
	// BaseURL is the service root, e.g. http://localhost:8080/render-ws/v1.
	BaseURL string `toml:"base_url"`
	Owner   string `toml:"owner"`
	Project string `toml:"project"`
	Stack   string `toml:"stack"`
}

// MongoConfig selects the transform store database.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// RedisConfig selects the shared cache backend. An empty Addr disables
// Redis; commands fall back to the file cache.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// CacheConfig controls local response caching.
type CacheConfig struct {
	// Dir overrides the XDG cache directory (~/.cache/tilewarp).
	Dir string `toml:"dir"`
	// TTL bounds the lifetime of cached service responses.
	TTL Duration `toml:"ttl"`
}

// Default returns the built-in configuration: a local render service,
// a local Mongo store, Redis disabled, and a day of response caching.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			BaseURL: "http://localhost:8080/render-ws/v1",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: appName,
		},
		Cache: CacheConfig{
			TTL: Duration{24 * time.Hour},
		},
	}
}

// Path returns the config file location, honoring XDG_CONFIG_HOME.
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, err, "resolving home directory")
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the configuration from path, or from [Path] when path is
// empty. A missing file is not an error: defaults apply. Environment
// overrides are applied last, so they win over file settings.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file yet; defaults plus environment.
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "reading config %s", path)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "parsing config %s", path)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML to path, or to [Path] when path
// is empty, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "creating config dir")
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "encoding config")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "writing config %s", path)
	}
	return nil
}

// CacheDir resolves the cache directory: the configured override if set,
// else the XDG standard location (~/.cache/tilewarp).
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, err, "resolving home directory")
	}
	return filepath.Join(home, ".cache", appName), nil
}

// applyEnv overlays TILEWARP_* environment variables onto cfg.
func applyEnv(cfg *Config) error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString(&cfg.Render.BaseURL, "TILEWARP_RENDER_URL")
	setString(&cfg.Render.Owner, "TILEWARP_OWNER")
	setString(&cfg.Render.Project, "TILEWARP_PROJECT")
	setString(&cfg.Render.Stack, "TILEWARP_STACK")
	setString(&cfg.Mongo.URI, "TILEWARP_MONGO_URI")
	setString(&cfg.Mongo.Database, "TILEWARP_MONGO_DB")
	setString(&cfg.Redis.Addr, "TILEWARP_REDIS_ADDR")
	setString(&cfg.Redis.Password, "TILEWARP_REDIS_PASSWORD")
	setString(&cfg.Cache.Dir, "TILEWARP_CACHE_DIR")

	if v, ok := os.LookupEnv("TILEWARP_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "parsing TILEWARP_REDIS_DB")
		}
		cfg.Redis.DB = n
	}
	if v, ok := os.LookupEnv("TILEWARP_CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "parsing TILEWARP_CACHE_TTL")
		}
		cfg.Cache.TTL = Duration{ttl}
	}
	return nil
}
