package middleware

import "testing"

func TestIsLoopback(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8080": true,
		"localhost:8080": true,
		"[::1]:8080":     true,
		"127.0.0.1":      true,
		":8080":          false,
		"0.0.0.0:8080":   false,
		"[::]:8080":      false,
		"10.0.0.5:8080":  false,
		"jokes.example":  false,
	}
	for addr, want := range cases {
		if got := IsLoopback(addr); got != want {
			t.Fatalf("IsLoopback(%q) = %v, want %v", addr, got, want)
		}
	}
}
