package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jokeledger/config"
	"jokeledger/core"
	"jokeledger/gateway/middleware"
	"jokeledger/observability/logging"
	"jokeledger/observability/metrics"
	telemetry "jokeledger/observability/otel"
	"jokeledger/rpc"
	"jokeledger/storage"
	"jokeledger/storage/journal"
)

const serviceName = "jokeledgerd"

func main() {
	var cfgPath string
	var genesisPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to the node configuration (created with defaults when missing)")
	flag.StringVar(&genesisPath, "genesis", "", "YAML genesis allocations; overrides GenesisFile")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(genesisPath) != "" {
		cfg.GenesisFile = genesisPath
	}

	logger := logging.SetupWithOptions(serviceName, cfg.Environment, cfg.Log.Options())
	logger.Info("configuration loaded",
		"config", cfgPath,
		"storage", cfg.Storage.Backend,
		"journal", cfg.Journal.Driver,
		"auth", cfg.Auth.Enabled,
		logging.MaskField("hmacSecret", cfg.Auth.HMACSecret),
		logging.MaskField("journalDSN", cfg.Journal.DSN),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("jokeledgerd exited", "error", err)
		os.Exit(1)
	}
	logger.Info("jokeledgerd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	n, err := newNode(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	logger.Info("serving", "addr", cfg.RPC.ListenAddress)
	return n.server.Run(ctx)
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	service := strings.TrimSpace(cfg.Telemetry.ServiceName)
	if service == "" {
		service = serviceName
	}
	tcfg := telemetry.ConfigFromEnv(service, cfg.Environment)
	if endpoint := strings.TrimSpace(cfg.Telemetry.OTLPEndpoint); endpoint != "" {
		tcfg.Endpoint = endpoint
		tcfg.Insecure = cfg.Telemetry.OTLPInsecure
		tcfg.Metrics = true
		tcfg.Traces = true
	}
	return tcfg
}

// node owns everything a running daemon has open.
type node struct {
	db      storage.Database
	journal *journal.Journal
	ledger  *core.Ledger
	server  *rpc.Server
}

func newNode(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*node, error) {
	params, err := cfg.Ledger.Params()
	if err != nil {
		return nil, fmt.Errorf("ledger params: %w", err)
	}
	db, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	n := &node{db: db}

	opts := core.Options{
		Params:  &params,
		Logger:  logger.With("component", "ledger"),
		Metrics: metrics.Ledger(),
	}
	rpcOpts := rpc.Options{
		Authenticator: middleware.NewAuthenticator(cfg.Auth.Middleware(), logger),
		RateLimiter:   middleware.NewRateLimiter(cfg.Limits(), logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			LogRequests: cfg.Telemetry.LogRequests,
			Enabled:     cfg.Telemetry.Enabled,
		}, logger),
		Logger: logger.With("component", "rpc"),
	}
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			n.Close()
			return nil, err
		}
		n.journal = j
		opts.Journal = j
		rpcOpts.Events = j
	}

	ledger, err := core.NewLedger(db, opts)
	if err != nil {
		n.Close()
		return nil, err
	}
	n.ledger = ledger

	if err := applyGenesis(ctx, ledger, cfg.GenesisFile, logger); err != nil {
		n.Close()
		return nil, err
	}

	server, err := rpc.New(rpc.Config{
		ListenAddress:     cfg.RPC.ListenAddress,
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeoutSeconds) * time.Second,
		ShutdownTimeout:   time.Duration(cfg.RPC.ShutdownTimeoutSeconds) * time.Second,
		MaxBodyBytes:      cfg.RPC.MaxBodyBytes,
		AdminScope:        cfg.Auth.AdminScope,
		CORS:              middleware.CORSConfig{AllowedOrigins: cfg.RPC.AllowedOrigins},
		AllowInsecure:     cfg.RPC.AllowInsecure,
	}, ledger, rpcOpts)
	if err != nil {
		n.Close()
		return nil, err
	}
	n.server = server
	return n, nil
}

func (n *node) Close() {
	if n.ledger != nil {
		n.ledger.Feed().Close()
	}
	if n.journal != nil {
		_ = n.journal.Close()
	}
	if n.db != nil {
		n.db.Close()
	}
}

func openStorage(cfg config.Storage) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendLevelDB:
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		db, err := storage.NewLevelDB(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open leveldb %s: %w", cfg.Path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func applyGenesis(ctx context.Context, ledger *core.Ledger, path string, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	genesis, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}
	balances, err := genesis.Balances()
	if err != nil {
		return err
	}
	applied, err := ledger.ApplyGenesis(ctx, balances)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if applied {
		logger.Info("genesis applied", "accounts", len(balances))
	} else {
		logger.Info("genesis already applied; skipping")
	}
	return nil
}
