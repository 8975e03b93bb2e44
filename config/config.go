package config

import (
	"os"
	"strings"
)

// AppConfig is the gateway configuration, parsed from the environment with
// github.com/caarlos0/env. Auth settings live in auth.go, store settings in
// database.go, and process modes in services.go.
type AppConfig struct {
	// IsDev relaxes cookie security for local development.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Credential store (PostgreSQL) and session store (Redis)
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http"`

	// Token reaper configuration
	TokenReaper TokenReaperConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize clamps loaded values to usable defaults.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.HTTP.Sanitize()
	c.TokenReaper.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// ServiceEnabled reports whether mode is listed in SERVICES. An invalid
// SERVICES value enables nothing.
func (c *AppConfig) ServiceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	return err == nil && services[mode]
}
