// Package config loads server and CLI settings from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Config struct {
	Listen      string `yaml:"listen"`
	Store       string `yaml:"store"`
	DatabaseURL string `yaml:"database_url"`
	Redis       Redis  `yaml:"redis"`
	LogLevel    string `yaml:"log_level"`
	// Catalog is a YAML stage catalog replacing the built-in one.
	Catalog string `yaml:"catalog"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		Listen:   ":3000",
		Store:    StoreMemory,
		LogLevel: "info",
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "blockpipe:graph:",
		},
	}
}

// Load applies, in order: defaults, the YAML file at path (skipped when path
// is empty), environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BLOCKPIPE_LISTEN":    &c.Listen,
		"BLOCKPIPE_STORE":     &c.Store,
		"DATABASE_URL":        &c.DatabaseURL,
		"REDIS_ADDR":          &c.Redis.Addr,
		"REDIS_PASSWORD":      &c.Redis.Password,
		"BLOCKPIPE_LOG_LEVEL": &c.LogLevel,
		"BLOCKPIPE_CATALOG":   &c.Catalog,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	return nil
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: postgres store needs DATABASE_URL")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis store needs an address")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.Listen == "" {
		return errors.New("config: listen address is empty")
	}
	return nil
}
