package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"jokeledger/gateway/middleware"
	"jokeledger/native/jokes"
	"jokeledger/observability/logging"
)

// RPC configures the HTTP listener.
type RPC struct {
	ListenAddress            string   `toml:"ListenAddress"`
	ReadHeaderTimeoutSeconds int      `toml:"ReadHeaderTimeoutSeconds"`
	ShutdownTimeoutSeconds   int      `toml:"ShutdownTimeoutSeconds"`
	MaxBodyBytes             int64    `toml:"MaxBodyBytes"`
	AllowedOrigins           []string `toml:"AllowedOrigins"`
	// AllowInsecure permits serving without authentication on a non-loopback
	// address. Development only.
	AllowInsecure bool `toml:"AllowInsecure"`
}

// Ledger mirrors jokes.Params in a file-friendly form. Amounts are decimal
// strings in base units.
type Ledger struct {
	MaxJokesPerUser      uint64   `toml:"MaxJokesPerUser"`
	VotingPeriodSeconds  int64    `toml:"VotingPeriodSeconds"`
	ApprovalThreshold    uint64   `toml:"ApprovalThreshold"`
	LockPeriodSeconds    int64    `toml:"LockPeriodSeconds"`
	CooldownPeriodSecs   int64    `toml:"CooldownPeriodSeconds"`
	ValuePerVote         string   `toml:"ValuePerVote"`
	DevaluationBps       uint64   `toml:"DevaluationBps"`
	FusionMultiplier     uint64   `toml:"FusionMultiplier"`
	ExchangeToleranceBps uint64   `toml:"ExchangeToleranceBps"`
	TierThresholds       []uint64 `toml:"TierThresholds"`
}

// Storage selects the state backend: "memory" or "leveldb".
type Storage struct {
	Backend string `toml:"Backend"`
	Path    string `toml:"Path"`
}

// Journal configures the SQL event journal.
type Journal struct {
	Enabled bool   `toml:"Enabled"`
	Driver  string `toml:"Driver"`
	DSN     string `toml:"DSN"`
}

// Auth configures bearer token verification for write routes.
type Auth struct {
	Enabled          bool     `toml:"Enabled"`
	HMACSecret       string   `toml:"HMACSecret"`
	HMACSecretEnv    string   `toml:"HMACSecretEnv"`
	Issuer           string   `toml:"Issuer"`
	Audience         string   `toml:"Audience"`
	AdminScope       string   `toml:"AdminScope"`
	OptionalPaths    []string `toml:"OptionalPaths"`
	AllowAnonymous   bool     `toml:"AllowAnonymous"`
	ClockSkewSeconds int      `toml:"ClockSkewSeconds"`
}

// RateLimit bounds one route class per client.
type RateLimit struct {
	RatePerSecond float64        `toml:"RatePerSecond"`
	Burst         int            `toml:"Burst"`
	DefaultTokens int            `toml:"DefaultTokens"`
	Tokens        map[string]int `toml:"Tokens,omitempty"`
}

// Log configures structured logging.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Telemetry configures request instrumentation and OTLP export. An empty
// endpoint leaves the exporters disabled.
type Telemetry struct {
	ServiceName  string `toml:"ServiceName"`
	Enabled      bool   `toml:"Enabled"`
	LogRequests  bool   `toml:"LogRequests"`
	OTLPEndpoint string `toml:"OTLPEndpoint"`
	OTLPInsecure bool   `toml:"OTLPInsecure"`
}

// Params converts the section into engine parameters.
func (l Ledger) Params() (jokes.Params, error) {
	params := jokes.Params{
		MaxJokesPerUser:      l.MaxJokesPerUser,
		VotingPeriodSeconds:  l.VotingPeriodSeconds,
		ApprovalThreshold:    l.ApprovalThreshold,
		LockPeriodSeconds:    l.LockPeriodSeconds,
		CooldownPeriodSecs:   l.CooldownPeriodSecs,
		DevaluationBps:       l.DevaluationBps,
		FusionMultiplier:     l.FusionMultiplier,
		ExchangeToleranceBps: l.ExchangeToleranceBps,
	}
	value, err := parseUintAmount(l.ValuePerVote)
	if err != nil {
		return params, fmt.Errorf("invalid Ledger.ValuePerVote: %w", err)
	}
	params.ValuePerVote = value
	if len(l.TierThresholds) != len(params.TierThresholds) {
		return params, fmt.Errorf("Ledger.TierThresholds needs %d entries, got %d", len(params.TierThresholds), len(l.TierThresholds))
	}
	copy(params.TierThresholds[:], l.TierThresholds)
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

func ledgerFromParams(p jokes.Params) Ledger {
	return Ledger{
		MaxJokesPerUser:      p.MaxJokesPerUser,
		VotingPeriodSeconds:  p.VotingPeriodSeconds,
		ApprovalThreshold:    p.ApprovalThreshold,
		LockPeriodSeconds:    p.LockPeriodSeconds,
		CooldownPeriodSecs:   p.CooldownPeriodSecs,
		ValuePerVote:         p.ValuePerVote.String(),
		DevaluationBps:       p.DevaluationBps,
		FusionMultiplier:     p.FusionMultiplier,
		ExchangeToleranceBps: p.ExchangeToleranceBps,
		TierThresholds:       append([]uint64(nil), p.TierThresholds[:]...),
	}
}

// Middleware returns the authenticator settings.
func (a Auth) Middleware() middleware.AuthConfig {
	return middleware.AuthConfig{
		Enabled:        a.Enabled,
		HMACSecret:     a.HMACSecret,
		Issuer:         a.Issuer,
		Audience:       a.Audience,
		ScopeClaim:     "scope",
		OptionalPaths:  append([]string(nil), a.OptionalPaths...),
		AllowAnonymous: a.AllowAnonymous,
		ClockSkew:      time.Duration(a.ClockSkewSeconds) * time.Second,
	}
}

// Options returns the logging options for this section.
func (l Log) Options() logging.Options {
	return logging.Options{
		Level:      l.Level,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

// Limits converts the configured route classes for the rate limiter.
func (c *Config) Limits() map[string]middleware.RateLimit {
	out := make(map[string]middleware.RateLimit, len(c.RateLimits))
	for name, limit := range c.RateLimits {
		out[strings.ToLower(strings.TrimSpace(name))] = middleware.RateLimit{
			RatePerSecond: limit.RatePerSecond,
			Burst:         limit.Burst,
			DefaultTokens: limit.DefaultTokens,
			Tokens:        limit.Tokens,
		}
	}
	return out
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return value, nil
}
