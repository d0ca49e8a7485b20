package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/lineamap/lineamap/pkg/cache"
)

// =============================================================================
// Config File
// =============================================================================

// Config holds settings read from the optional config file
// (~/.config/lineamap/config.toml). Flags override file values.
type Config struct {
	Serve ServeConfig `toml:"serve"`
	Cache CacheConfig `toml:"cache"`
	Mongo MongoConfig `toml:"mongo"`
}

// ServeConfig configures the HTTP API server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// CacheConfig selects the pipeline cache backend.
// Backend is one of "file", "redis", or "none".
type CacheConfig struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
}

// MongoConfig configures the snapshot store.
type MongoConfig struct {
	URI       string `toml:"uri"`
	Namespace string `toml:"namespace"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Serve: ServeConfig{Addr: ":8080"},
		Cache: CacheConfig{Backend: "file"},
		Mongo: MongoConfig{Namespace: "default"},
	}
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		defaultPath, err := configPath()
		if err != nil {
			return cfg, nil
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// configCache builds the cache backend named by cfg.
func configCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "file":
		dir := cfg.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache backend redis requires redis_addr")
		}
		return cache.NewRedisCache(ctx, cfg.RedisAddr)
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want file, redis, or none)", cfg.Backend)
	}
}
