package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jokeledger/core"
	"jokeledger/gateway/middleware"
	"jokeledger/rpc"
	"jokeledger/storage"
)

const (
	author = "0x1000000000000000000000000000000000000001"
	voter1 = "0x2000000000000000000000000000000000000002"
	voter2 = "0x3000000000000000000000000000000000000003"
)

func startServer(t *testing.T) string {
	t.Helper()
	now := time.Unix(50_000, 0)
	ledger, err := core.NewLedger(storage.NewMemDB(), core.Options{Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(ledger.Feed().Close)
	srv, err := rpc.New(rpc.Config{}, ledger, rpc.Options{})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return server.URL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("jokectl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestSubmitVoteFinalize(t *testing.T) {
	endpoint := startServer(t)

	out := mustRun(t, "--endpoint", endpoint, "--caller", author, "submit", "--name", "Skeletons", "--content", "No guts.", "--ref", "ipfs://bones")
	var created struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil || created.ID == 0 {
		t.Fatalf("unexpected submit output %q: %v", out, err)
	}
	mustRun(t, "--endpoint", endpoint, "--caller", voter1, "vote", "1")
	mustRun(t, "--endpoint", endpoint, "--caller", voter2, "vote", "1")

	out = mustRun(t, "--endpoint", endpoint, "--caller", voter1, "finalize", "1")
	var res rpc.FinalizeView
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode finalize: %v", err)
	}
	if res.Outcome != "APPROVED" || res.JokeID != 1 {
		t.Fatalf("unexpected finalize result %+v", res)
	}

	out = mustRun(t, "--endpoint", endpoint, "jokes", "--owner", author)
	var list []rpc.JokeView
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode jokes: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Skeletons" || list[0].Tier != "BASIC" {
		t.Fatalf("unexpected jokes %+v", list)
	}

	out = mustRun(t, "--endpoint", endpoint, "--caller", author, "list", "1", "--price", "25")
	var joke rpc.JokeView
	if err := json.Unmarshal([]byte(out), &joke); err != nil || joke.Price != "25" {
		t.Fatalf("unexpected listing output %q: %v", out, err)
	}
}

func TestLedgerErrorsSurface(t *testing.T) {
	endpoint := startServer(t)
	out, err := runCLI(t, "--endpoint", endpoint, "--caller", author, "joke", "7")
	if err == nil {
		t.Fatalf("expected not found error, got output %q", out)
	}
	if !strings.Contains(err.Error(), "NotFound") {
		t.Fatalf("error should carry the ledger code: %v", err)
	}
	if _, err := runCLI(t, "--endpoint", endpoint, "vote", "zero"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestPauseCommand(t *testing.T) {
	endpoint := startServer(t)
	out := mustRun(t, "--endpoint", endpoint, "pause", "on")
	if !strings.Contains(out, `"paused": true`) {
		t.Fatalf("unexpected pause output %q", out)
	}
	out = mustRun(t, "--endpoint", endpoint, "pause")
	if !strings.Contains(out, `"paused": true`) {
		t.Fatalf("pause status not reported: %q", out)
	}
	if _, err := runCLI(t, "--endpoint", endpoint, "pause", "maybe"); err == nil {
		t.Fatalf("expected error for bad pause argument")
	}
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	out := mustRun(t, "token", author, "--secret", "dev-secret", "--scope", "admin", "--ttl", "1h")
	token := strings.TrimSpace(out)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true, HMACSecret: "dev-secret", Issuer: "jokeledger"}, nil)
	var subject string
	var scopes []string
	handler := auth.Middleware("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = middleware.Subject(r.Context())
		scopes = middleware.Scopes(r.Context())
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token rejected: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.EqualFold(subject, author) {
		t.Fatalf("unexpected subject %s", subject)
	}
	if len(scopes) != 1 || scopes[0] != "admin" {
		t.Fatalf("unexpected scopes %v", scopes)
	}

	if _, err := runCLI(t, "token", "not-an-address", "--secret", "x"); err == nil {
		t.Fatalf("expected subject validation error")
	}
}
