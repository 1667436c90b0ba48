// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/gall3ry/gall3ry/internal/model"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Upstream credentials. Either may be absent; the affected
	// provider degrades instead of blocking startup.
	NeynarAPIKey  string `env:"NEYNAR_API_KEY"`
	AlchemyAPIKey string `env:"ALCHEMY_API_KEY"`

	// Profile resolution
	// Comma-separated provider order for profile lookups.
	ProviderOrder string `env:"PROVIDER_ORDER" envDefault:"neynar,warpcast"`

	// Aggregation fan-out
	// Comma-separated subset of the supported networks.
	EnabledNetworks   string        `env:"ENABLED_NETWORKS" envDefault:"ethereum,polygon,optimism,arbitrum,base"`
	PerLegTimeout     time.Duration `env:"PER_LEG_TIMEOUT" envDefault:"15s"`
	GlobalConcurrency int           `env:"GLOBAL_CONCURRENCY" envDefault:"8"`
	PageSizeMax       int           `env:"PAGE_SIZE_MAX" envDefault:"100"`

	// Image proxy and URL rewriting
	PerCandidateTimeout time.Duration `env:"PER_CANDIDATE_TIMEOUT" envDefault:"8s"`
	// Comma-separated IPFS gateway hosts in priority order.
	GatewayList string `env:"GATEWAY_LIST" envDefault:"nftstorage.link,dweb.link,ipfs.io,cloudflare-ipfs.com"`
	// Comma-separated pinning hosts whose /ipfs/ URLs get rewritten away.
	DegradedGatewayHosts string `env:"DEGRADED_GATEWAY_HOSTS" envDefault:"mypinata.cloud"`

	// Negative profile cache. An empty Redis URL selects the bounded
	// in-memory backend.
	RedisURL         string        `env:"REDIS_URL"`
	NegativeCacheTTL time.Duration `env:"NEGATIVE_CACHE_TTL" envDefault:"60s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetProviderOrder parses the provider order list.
func (c *Config) GetProviderOrder() []string {
	return splitList(c.ProviderOrder)
}

// GetEnabledNetworks parses and validates the enabled network set.
// Unknown tags are a fatal configuration error.
func (c *Config) GetEnabledNetworks() ([]model.Network, error) {
	tags := splitList(c.EnabledNetworks)
	networks := make([]model.Network, 0, len(tags))
	for _, tag := range tags {
		network, ok := model.ParseNetwork(tag)
		if !ok {
			return nil, fmt.Errorf("unknown network %q in ENABLED_NETWORKS", tag)
		}
		networks = append(networks, network)
	}
	if len(networks) == 0 {
		return nil, fmt.Errorf("ENABLED_NETWORKS must name at least one network")
	}
	return networks, nil
}

// GetGatewayList parses the IPFS gateway priority list.
func (c *Config) GetGatewayList() []string {
	return splitList(c.GatewayList)
}

// GetDegradedGatewayHosts parses the degraded pinning host set.
func (c *Config) GetDegradedGatewayHosts() []string {
	return splitList(c.DegradedGatewayHosts)
}

// Load parses environment variables and returns a Config.
// Returns an error if any variable fails to parse.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
