package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env holds the process settings read from the environment.
type Env struct {
	ConfigPath    string        `env:"SKIRMISH_CONFIG" envDefault:"./skirmish_config.json"`
	DBPath        string        `env:"SKIRMISH_DB" envDefault:"./data/skirmish.db"`
	Addr          string        `env:"SKIRMISH_ADDR"`
	TokenSecret   string        `env:"SKIRMISH_TOKEN_SECRET"`
	TurnTimeout   time.Duration `env:"SKIRMISH_TURN_TIMEOUT"`
	SwitchTimeout time.Duration `env:"SKIRMISH_SWITCH_TIMEOUT"`
	Debug         bool          `env:"SKIRMISH_DEBUG"`
	OTelEndpoint  string        `env:"SKIRMISH_OTEL_ENDPOINT"`
	OTelEnabled   bool          `env:"SKIRMISH_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env.
func LoadEnv() (Env, error) {
	var e Env
	err := ParseEnv(&e)
	return e, err
}

// ApplyEnv lets environment values override the file.
func (c *LoadedConfig) ApplyEnv(e Env) {
	if e.Addr != "" {
		c.ServerAddress = e.Addr
	}
	if e.TurnTimeout > 0 {
		c.Battle.TurnTimeout = e.TurnTimeout
	}
	if e.SwitchTimeout > 0 {
		c.Battle.SwitchTimeout = e.SwitchTimeout
	}
}
