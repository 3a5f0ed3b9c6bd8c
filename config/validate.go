package config

import (
	"fmt"
	"strings"

	"jokeledger/gateway/middleware"
	"jokeledger/storage/journal"
)

var knownRouteClasses = map[string]struct{}{
	"read":   {},
	"write":  {},
	"stream": {},
}

// ValidateConfig rejects configurations the daemon cannot start with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.RPC.ListenAddress) == "" {
		return fmt.Errorf("rpc: ListenAddress required")
	}
	if cfg.RPC.MaxBodyBytes < 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must not be negative")
	}
	if _, err := cfg.Ledger.Params(); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case BackendMemory:
	case BackendLevelDB:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage: Path required for leveldb backend")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
	if cfg.Journal.Enabled {
		switch strings.ToLower(strings.TrimSpace(cfg.Journal.Driver)) {
		case journal.DriverSQLite, "":
		case journal.DriverPostgres:
			if strings.TrimSpace(cfg.Journal.DSN) == "" {
				return fmt.Errorf("journal: DSN required for postgres")
			}
		default:
			return fmt.Errorf("journal: unknown driver %q", cfg.Journal.Driver)
		}
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return fmt.Errorf("auth: HMACSecret (or the variable named by HMACSecretEnv) required when enabled")
	}
	if !cfg.Auth.Enabled && !cfg.RPC.AllowInsecure && !middleware.IsLoopback(cfg.RPC.ListenAddress) {
		return fmt.Errorf("rpc: ListenAddress %s is not loopback; enable Auth or set AllowInsecure for development", cfg.RPC.ListenAddress)
	}
	if cfg.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("auth: ClockSkewSeconds must not be negative")
	}
	for i, path := range cfg.Auth.OptionalPaths {
		if !strings.HasPrefix(strings.TrimSpace(path), "/") {
			return fmt.Errorf("auth: OptionalPaths[%d] must start with '/'", i)
		}
	}
	if cfg.Auth.AllowAnonymous && len(cfg.Auth.OptionalPaths) == 0 {
		return fmt.Errorf("auth: OptionalPaths must list at least one entry when AllowAnonymous is true")
	}
	for name, limit := range cfg.RateLimits {
		if _, ok := knownRouteClasses[strings.ToLower(strings.TrimSpace(name))]; !ok {
			return fmt.Errorf("ratelimits: unknown route class %q", name)
		}
		if limit.RatePerSecond <= 0 || limit.Burst <= 0 {
			return fmt.Errorf("ratelimits.%s: RatePerSecond and Burst must be positive", name)
		}
		for route, tokens := range limit.Tokens {
			if tokens <= 0 || tokens > limit.Burst {
				return fmt.Errorf("ratelimits.%s: tokens for %q must be between 1 and Burst", name, route)
			}
		}
	}
	return nil
}
