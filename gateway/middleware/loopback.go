package middleware

import (
	"net"
	"strings"
)

// IsLoopback reports whether addr (host:port or a bare host) only accepts
// connections from the local machine. Empty and unspecified hosts bind every
// interface and are not loopback.
func IsLoopback(addr string) bool {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
