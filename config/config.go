// Package config loads client configuration from the environment, after
// reading an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "APICLIENT_"

type Config struct {
	APIURL  string            `env:"API_URL,required"`
	Headers map[string]string `env:"HEADERS"`

	TokenStore string        `env:"TOKEN_STORE" envDefault:"storage"` // cookie | storage
	Cookie     CookieConfig  `envPrefix:"COOKIE_"`
	Storage    StorageConfig `envPrefix:"STORAGE_"`

	Cache    CacheConfig    `envPrefix:"CACHE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Memcache MemcacheConfig `envPrefix:"MEMCACHE_"`

	Log     LogConfig `envPrefix:"LOG_"`
	Metrics bool      `env:"METRICS" envDefault:"false"`
}

type CookieConfig struct {
	Name   string `env:"NAME" envDefault:"token"`
	Domain string `env:"DOMAIN"`
	Path   string `env:"PATH" envDefault:"/"`
	Secure *bool  `env:"SECURE"` // unset: follow the API URL scheme
}

type StorageConfig struct {
	Path   string `env:"PATH" envDefault:"apiclient.db"`
	Bucket string `env:"BUCKET" envDefault:"storage"`
	Key    string `env:"KEY" envDefault:"token"`
}

type CacheConfig struct {
	Backend string        `env:"BACKEND" envDefault:"memory"` // none | memory | redis | memcache
	TTL     time.Duration `env:"TTL" envDefault:"5m"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"apicache"`
}

type MemcacheConfig struct {
	Servers []string `env:"SERVERS" envSeparator:"," envDefault:"localhost:11211"`
	Prefix  string   `env:"PREFIX" envDefault:"apicache:"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"` // json or text
}

// Load reads .env files (missing files are ignored) and parses the
// environment.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CookieSecure reports whether the token cookie carries the Secure
// attribute. Unless set explicitly it is on for https API URLs only, since
// a Secure cookie is never sent back over plain http.
func (c *Config) CookieSecure() bool {
	if c.Cookie.Secure != nil {
		return *c.Cookie.Secure
	}
	u, err := url.Parse(c.APIURL)
	return err == nil && u.Scheme == "https"
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.TokenStore {
	case "cookie", "storage":
	default:
		return fmt.Errorf("unknown token store %q", c.TokenStore)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis", "memcache":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
