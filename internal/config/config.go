// Package config loads daemon settings from the environment and an optional YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	TCP    TCPConfig    `yaml:"tcp"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Static StaticConfig `yaml:"static"`
	Log    LogConfig    `yaml:"log"`
}

type HTTPConfig struct {
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	// AllowOrigins feeds the CORS middleware. "*" allows any origin.
	AllowOrigins []string `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-default:"*"`
}

// TCPConfig controls the line-protocol listener. An empty port disables it.
type TCPConfig struct {
	Port       string `yaml:"port" env:"TCP_PORT" env-default:"7001"`
	DisableTLS bool   `yaml:"disable_tls" env:"ACCOUNTS_DISABLE_TLS" env-default:"false"`
}

type StoreConfig struct {
	Path      string        `yaml:"path" env:"STORE_PATH" env-default:"users.json"`
	IOTimeout time.Duration `yaml:"io_timeout" env:"STORE_IO_TIMEOUT" env-default:"5s"`
}

type AuthConfig struct {
	// PasswordScheme is "bcrypt" or "plain".
	PasswordScheme string `yaml:"password_scheme" env:"PASSWORD_SCHEME" env-default:"bcrypt"`
	BcryptCost     int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

type StaticConfig struct {
	Dir string `yaml:"dir" env:"STATIC_DIR" env-default:"public"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration. When path is non-empty the YAML file is read
// first and environment variables override it; otherwise only the
// environment (and defaults) apply.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	if c.Store.IOTimeout <= 0 {
		return fmt.Errorf("STORE_IO_TIMEOUT must be positive, got %s", c.Store.IOTimeout)
	}
	return nil
}
