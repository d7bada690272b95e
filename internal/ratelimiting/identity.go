package ratelimiting

import (
	"net"
	"net/http"
	"strings"
)

const UnknownClient = "unknown"

// ClientIdentity resolves the client a request should be accounted to
//
// Resolution order: first X-Forwarded-For entry, X-Real-IP, the remote address.
func ClientIdentity(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if r.RemoteAddr == "" {
		return UnknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// No port
		return r.RemoteAddr
	}
	if host == "" {
		return UnknownClient
	}
	return host
}
