package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders("authorization=Bearer abc, x-team = jokes ,broken,=skip")
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", headers)
	}
	if headers["authorization"] != "Bearer abc" || headers["x-team"] != "jokes" {
		t.Fatalf("unexpected headers %v", headers)
	}
}

func TestConfigFromEnvDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := ConfigFromEnv("jokeledgerd", "test")
	if cfg.Traces || cfg.Metrics {
		t.Fatalf("exporters should stay off without an endpoint: %+v", cfg)
	}
	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestConfigFromEnvReadsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "k=v")
	cfg := ConfigFromEnv("jokeledgerd", "prod")
	if !cfg.Traces || !cfg.Insecure || cfg.Endpoint != "collector:4318" || cfg.Headers["k"] != "v" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without service name")
	}
}
