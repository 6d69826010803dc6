package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/flowcanvas/flowcanvas/pkg/layout"
)

// Config is the user-level tool configuration, read from
// ~/.config/flowcanvas/config.toml. Every field has a working default, so a
// missing file is fine.
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Layout LayoutConfig `toml:"layout"`
	Serve  ServeConfig  `toml:"serve"`
}

// CacheConfig selects and configures the layout cache backend.
type CacheConfig struct {
	// Backend is one of file, redis, none.
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// StoreConfig selects and configures the snapshot history backend.
type StoreConfig struct {
	// Backend is one of memory, mongo.
	Backend         string `toml:"backend"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// LayoutConfig holds the default auto-layout options.
type LayoutConfig struct {
	Direction string `toml:"direction"`
	SpacingX  int    `toml:"spacing_x"`
	SpacingY  int    `toml:"spacing_y"`
}

// ServeConfig configures the HTTP API server.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Backend:   "file",
			RedisAddr: "localhost:6379",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Layout: LayoutConfig{
			Direction: string(layout.DirectionTB),
			SpacingX:  layout.DefaultSpacingX,
			SpacingY:  layout.DefaultSpacingY,
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

// ConfigPath returns the config file location, honoring XDG_CONFIG_HOME.
func ConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// LoadConfig reads a config file, layering it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the user config and silently falls back to the
// defaults when the file is missing or unreadable.
func LoadConfigOrDefault() Config {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig()
	}
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}
