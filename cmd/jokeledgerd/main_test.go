package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"jokeledger/config"
	"jokeledger/native/jokes"
)

const genesisYAML = `allocations:
  - account: "0x1000000000000000000000000000000000000001"
    amount: "750"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	genesis := filepath.Join(dir, "genesis.yaml")
	if err := os.WriteFile(genesis, []byte(genesisYAML), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	cfg := config.Default()
	cfg.GenesisFile = genesis
	cfg.Storage = config.Storage{Backend: config.BackendLevelDB, Path: filepath.Join(dir, "state")}
	cfg.Journal.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.Telemetry.Enabled = false
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewNodeAppliesGenesisOnce(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	owner, err := jokes.ParseAddress("0x1000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}

	n, err := newNode(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	balance, err := n.ledger.BalanceOf(ctx, owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 750 {
		t.Fatalf("unexpected genesis balance %s", balance)
	}
	n.Close()

	// Restarting over the same state must not credit the allocation twice.
	n, err = newNode(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("restart node: %v", err)
	}
	defer n.Close()
	balance, err = n.ledger.BalanceOf(ctx, owner)
	if err != nil {
		t.Fatalf("balance after restart: %v", err)
	}
	if balance.Int64() != 750 {
		t.Fatalf("genesis applied twice: %s", balance)
	}
}

func TestNewNodeServesHealth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = config.Storage{Backend: config.BackendMemory}
	n, err := newNode(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	defer n.Close()

	server := httptest.NewServer(n.server.Handler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestNewNodeRejectsBadGenesis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = config.Storage{Backend: config.BackendMemory}
	if err := os.WriteFile(cfg.GenesisFile, []byte("allocations:\n  - account: nope\n    amount: \"1\"\n"), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	if _, err := newNode(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected genesis error")
	}
}

func TestOpenStorageRejectsUnknownBackend(t *testing.T) {
	if _, err := openStorage(config.Storage{Backend: "bolt"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestTelemetryConfigPrefersFileEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := config.Default()
	if tcfg := telemetryConfig(cfg); tcfg.Traces || tcfg.Metrics {
		t.Fatalf("exporters should stay disabled without an endpoint: %+v", tcfg)
	}
	cfg.Telemetry.OTLPEndpoint = "collector:4318"
	tcfg := telemetryConfig(cfg)
	if tcfg.Endpoint != "collector:4318" || !tcfg.Traces || !tcfg.Metrics {
		t.Fatalf("unexpected telemetry config: %+v", tcfg)
	}
	if tcfg.ServiceName != "jokeledgerd" {
		t.Fatalf("unexpected service name %s", tcfg.ServiceName)
	}
}
