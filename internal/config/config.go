package config

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	API     APIConfig
	Cache   CacheConfig
	Session SessionConfig
	Observe ObserveConfig
}

type APIConfig struct {
	// BaseURL is the single backend origin plus path prefix for the
	// lifetime of the client. It is resolved once, not per request.
	BaseURL string `env:"API_BASE_URL, required"`

	TimeoutSeconds int `env:"API_TIMEOUT_SECS, default=30"`

	OutgoingHTTPMaxIdleConns    int `env:"API_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"API_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

// CacheConfig specifies response cache configuration.
type CacheConfig struct {
	TTLSeconds int `env:"CACHE_TTL_SECS, default=300"`
	MaxEntries int `env:"CACHE_MAX_ENTRIES, default=1000"`

	// CacheableEndpoints is the allow-list of endpoint patterns
	// (path.Match syntax) eligible for response caching. Endpoints not
	// matching any pattern always hit the network.
	CacheableEndpoints []string `env:"CACHE_ENDPOINT_PATTERNS, default=/filter-options/*"`
}

type SessionConfig struct {
	DurationHours        int `env:"SESSION_DURATION_HOURS, default=24"`
	WarningWindowMinutes int `env:"SESSION_WARNING_WINDOW_MINS, default=30"`

	// CredentialPath locates the on-disk credential store. Empty selects
	// a default under the user's home directory.
	CredentialPath string `env:"SESSION_CREDENTIAL_PATH"`
}

type ObserveConfig struct {
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=edulytics-client"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	if err := cfg.API.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid API configuration: %w", err)
	}

	if err := cfg.Cache.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid cache configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the API configuration is usable.
func (c *APIConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %w", err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("API_BASE_URL must be absolute: %s", c.BaseURL)
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("API_TIMEOUT_SECS must be positive")
	}

	return nil
}

// Validate checks that the cache configuration is valid, including that
// every allow-list entry is a well-formed pattern.
func (c *CacheConfig) Validate() error {
	if c.TTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECS must be positive")
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}

	for _, pattern := range c.CacheableEndpoints {
		if _, err := path.Match(pattern, pattern); err != nil {
			return fmt.Errorf("invalid cache endpoint pattern %q: %w", pattern, err)
		}
	}

	return nil
}
