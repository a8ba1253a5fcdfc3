package utilities

import (
	"net"
	"net/http"
	"strings"
)

// ClientInfo is the request origin recorded with sessions, attempts and audit rows.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ClientInfoFrom extracts the origin of r.
func ClientInfoFrom(r *http.Request) ClientInfo {
	return ClientInfo{IP: ClientIP(r), UserAgent: r.UserAgent()}
}

// ClientIP returns the host part of r.RemoteAddr. Forwarded headers are not read
// here; enable TRUST_PROXY_HEADERS so the router rewrites RemoteAddr behind a proxy.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
