package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is a parsed list of proxy networks whose forwarding headers
// are believed.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts CIDRs or bare IPs. Invalid entries are logged
// and skipped.
func ParseTrustedProxies(entries []string) TrustedProxies {
	var nets TrustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			bits = 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Contains reports whether ip is inside any trusted network.
func (t TrustedProxies) Contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address for r without the port. X-Real-IP and
// then the first X-Forwarded-For hop are used only when the connection
// comes from a trusted proxy and the header holds a valid IP.
func (t TrustedProxies) ClientIP(r *http.Request) string {
	remote := hostOnly(r.RemoteAddr)
	if !t.Contains(net.ParseIP(remote)) {
		return remote
	}

	if rip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); rip != nil {
		return rip.String()
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return remote
}

// TrustedRealIP rewrites RemoteAddr to the client IP so the rate limiter and
// the journal see the real client and never a spoofed header.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	proxies := ParseTrustedProxies(trusted)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.RemoteAddr = proxies.ClientIP(r)
			next.ServeHTTP(w, r)
		})
	}
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
