package http

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the originating client address. When X-Forwarded-For is
// present the leftmost entry wins; otherwise the transport peer address is
// used. The header is trusted as-is, matching upstream proxy deployments
// that overwrite it; no address syntax validation is done.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
