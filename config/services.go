package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeTokenReaper purges expired remember-me tokens.
	ServiceModeTokenReaper ServiceMode = "token-reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeTokenReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeTokenReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, token-reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// TokenReaperConfig contains remember-me token reaper configuration.
type TokenReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"TOKEN_REAPER_INTERVAL" envDefault:"15m"`

	// BatchSize caps rows deleted per statement.
	BatchSize int `env:"TOKEN_REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *TokenReaperConfig) Sanitize() {
	if r.Interval <= 0 {
		r.Interval = 15 * time.Minute
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1000
	}
}
