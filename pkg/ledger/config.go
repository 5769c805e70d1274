package ledger

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// EnvEndpoint names the environment variable holding the endpoint.
	EnvEndpoint = "CLEAKER_ENDPOINT"
	// EnvTimeout names the environment variable holding the request timeout.
	EnvTimeout = "CLEAKER_TIMEOUT"
	// DefaultEndpoint is used when neither an override nor EnvEndpoint is set.
	DefaultEndpoint = "http://localhost:8888/graphql"
	// DefaultTimeout bounds each request when EnvTimeout is unset.
	DefaultTimeout = 10 * time.Second

	graphqlSuffix = "/graphql"
	healthPath    = "/health"
)

// Config is the immutable configuration of a Client.
type Config struct {
	Endpoint string        `env:"CLEAKER_ENDPOINT" envDefault:"http://localhost:8888/graphql"`
	Timeout  time.Duration `env:"CLEAKER_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the compiled-in configuration.
func DefaultConfig() Config {
	return Config{Endpoint: DefaultEndpoint, Timeout: DefaultTimeout}
}

// LoadConfig resolves the configuration in priority order: endpointOverride
// when non-blank, then the environment, then the compiled-in defaults.
func LoadConfig(endpointOverride string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("ledger: parse env: %w", err)
	}
	if override := strings.TrimSpace(endpointOverride); override != "" {
		cfg.Endpoint = override
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the endpoint is an absolute http(s) URL and the
// timeout is not negative.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("ledger: endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("ledger: invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ledger: endpoint %q must use http or https", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("ledger: endpoint %q has no host", c.Endpoint)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("ledger: timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// HealthURL derives the liveness probe URL by stripping a trailing /graphql
// from the endpoint and appending /health.
func (c Config) HealthURL() string {
	base := strings.TrimRight(c.Endpoint, "/")
	base = strings.TrimSuffix(base, graphqlSuffix)
	return base + healthPath
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
