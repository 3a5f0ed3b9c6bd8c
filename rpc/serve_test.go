package rpc

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"jokeledger/core"
	"jokeledger/gateway/middleware"
	"jokeledger/storage"
)

func newTestServer(t *testing.T, cfg Config, auth *middleware.Authenticator) *Server {
	t.Helper()
	ledger, err := core.NewLedger(storage.NewMemDB(), core.Options{})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(ledger.Feed().Close)
	srv, err := New(cfg, ledger, Options{Authenticator: auth})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv
}

func TestServeRejectsPublicListenerWithoutAuth(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	listener, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	err = srv.Serve(context.Background(), listener)
	if err == nil || !strings.Contains(err.Error(), "authentication is required") {
		t.Fatalf("expected authentication requirement error, got %v", err)
	}
}

func TestServeAllowsPublicListenerWhenExplicit(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg  Config
		auth *middleware.Authenticator
	}{
		"allow insecure": {cfg: Config{AllowInsecure: true}},
		"auth enabled": {auth: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    true,
			HMACSecret: "s3cret",
			Issuer:     "jokeledger",
		}, nil)},
	} {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, tc.cfg, tc.auth)
			listener, err := net.Listen("tcp", "0.0.0.0:0")
			if err != nil {
				t.Fatalf("listen: %v", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			serveErr := make(chan error, 1)
			go func() { serveErr <- srv.Serve(ctx, listener) }()
			cancel()
			select {
			case err := <-serveErr:
				if err != nil {
					t.Fatalf("serve: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("serve did not stop after cancellation")
			}
		})
	}
}

func TestServeReturnsWhenListenerFails(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	listener.Close()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(context.Background(), listener) }()
	select {
	case err := <-serveErr:
		if err == nil || !strings.Contains(err.Error(), "rpc: serve") {
			t.Fatalf("expected serve error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve blocked after the listener failed")
	}
}

func TestEventStreamHonoursAllowedOrigins(t *testing.T) {
	srv := newTestServer(t, Config{CORS: middleware.CORSConfig{AllowedOrigins: []string{"https://jokes.example"}}}, nil)
	server := httptest.NewServer(srv.Handler())
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/events/stream"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dial := func(origin string) (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{origin}},
		})
		return conn, err
	}

	if conn, err := dial("https://evil.example"); err == nil {
		conn.Close(websocket.StatusNormalClosure, "")
		t.Fatalf("expected foreign origin to be refused")
	}
	conn, err := dial("https://jokes.example")
	if err != nil {
		t.Fatalf("allowed origin refused: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
