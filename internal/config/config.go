// Package config loads chunkd settings from the environment.
package config

import (
	"errors"
	"time"

	env "github.com/caarlos0/env/v11"

	"xdao.co/chunkstore/internal/logging"
)

// Config holds the daemon configuration. Every field has a CHUNKD_ variable.
type Config struct {
	Listen          string         `json:"listen"           env:"LISTEN"           envDefault:"127.0.0.1:7777"`
	Backend         string         `json:"backend"          env:"BACKEND"          envDefault:"localfs"`
	StoreConfig     string         `json:"store_config"     env:"STORE_CONFIG"`
	MaxMsgBytes     int            `json:"max_msg_bytes"    env:"MAX_MSG_BYTES"    envDefault:"0"`
	ShutdownTimeout time.Duration  `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Log             logging.Config `json:"log"              envPrefix:"LOG_"`
}

// Prefix is prepended to every variable name.
const Prefix = "CHUNKD_"

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads an explicit environment instead of the process one.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is required")
	}
	if c.Backend == "" && c.StoreConfig == "" {
		return errors.New("config: a backend or a store config file is required")
	}
	if c.MaxMsgBytes < 0 {
		return errors.New("config: max message size must not be negative")
	}
	return nil
}
