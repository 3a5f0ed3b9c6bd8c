package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"jokeledger/native/jokes"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"

	// EnvEnvironment overrides Config.Environment.
	EnvEnvironment = "JOKE_ENV"
)

type Config struct {
	Environment string               `toml:"Environment"`
	DataDir     string               `toml:"DataDir"`
	GenesisFile string               `toml:"GenesisFile"`
	RPC         RPC                  `toml:"RPC"`
	Ledger      Ledger               `toml:"Ledger"`
	Storage     Storage              `toml:"Storage"`
	Journal     Journal              `toml:"Journal"`
	Auth        Auth                 `toml:"Auth"`
	RateLimits  map[string]RateLimit `toml:"RateLimits"`
	Log         Log                  `toml:"Log"`
	Telemetry   Telemetry            `toml:"Telemetry"`
}

// Default returns the configuration written when no file exists yet.
func Default() *Config {
	return &Config{
		Environment: "local",
		DataDir:     "./joke-data",
		RPC: RPC{
			ListenAddress:            "127.0.0.1:8080",
			ReadHeaderTimeoutSeconds: 10,
			ShutdownTimeoutSeconds:   15,
			MaxBodyBytes:             1 << 20,
			AllowedOrigins:           []string{"*"},
		},
		Ledger: ledgerFromParams(jokes.DefaultParams()),
		Storage: Storage{
			Backend: BackendLevelDB,
			Path:    "state",
		},
		Journal: Journal{
			Enabled: true,
			Driver:  "sqlite",
			DSN:     "journal.db",
		},
		Auth: Auth{
			Enabled:          false,
			HMACSecretEnv:    "JOKE_AUTH_SECRET",
			Issuer:           "jokeledger",
			AdminScope:       "admin",
			ClockSkewSeconds: 120,
		},
		RateLimits: map[string]RateLimit{
			"read":   {RatePerSecond: 50, Burst: 100},
			"write":  {RatePerSecond: 5, Burst: 20, Tokens: map[string]int{"POST /v1/fusions": 3, "POST /v1/exchanges": 3}},
			"stream": {RatePerSecond: 1, Burst: 5},
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Telemetry: Telemetry{
			ServiceName: "jokeledgerd",
			Enabled:     true,
			LogRequests: true,
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	// Decoding merges into the defaults; the rate limit table is replaced
	// wholesale so removed route classes really disappear.
	cfg.RateLimits = nil
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.RateLimits == nil {
		cfg.RateLimits = map[string]RateLimit{}
	}
	cfg.applyEnv()
	cfg.resolvePaths(path)
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		c.Environment = env
	}
	if strings.TrimSpace(c.Auth.HMACSecret) == "" && strings.TrimSpace(c.Auth.HMACSecretEnv) != "" {
		c.Auth.HMACSecret = strings.TrimSpace(os.Getenv(c.Auth.HMACSecretEnv))
	}
}

// resolvePaths anchors relative data paths at DataDir, and a relative
// DataDir or GenesisFile at the directory holding the config file.
func (c *Config) resolvePaths(configPath string) {
	base := filepath.Dir(configPath)
	if c.DataDir != "" && !filepath.IsAbs(c.DataDir) {
		c.DataDir = filepath.Join(base, c.DataDir)
	}
	if c.GenesisFile != "" && !filepath.IsAbs(c.GenesisFile) {
		c.GenesisFile = filepath.Join(base, c.GenesisFile)
	}
	if c.Storage.Path != "" && !filepath.IsAbs(c.Storage.Path) {
		c.Storage.Path = filepath.Join(c.DataDir, c.Storage.Path)
	}
	if strings.EqualFold(c.Journal.Driver, "sqlite") && c.Journal.DSN != "" &&
		!strings.HasPrefix(c.Journal.DSN, "file:") && !filepath.IsAbs(c.Journal.DSN) {
		c.Journal.DSN = filepath.Join(c.DataDir, c.Journal.DSN)
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.resolvePaths(path)
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
