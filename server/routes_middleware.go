// routes_middleware.go - request-filtering middleware for the observability router
// Contains: isLocalIP(), allowedHost(), allowedHostsMiddleware()

package server

import (
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// isLocalIP reports whether ip belongs to one of this host's own interfaces.
func isLocalIP(ip netip.Addr) bool {
	if interfaces, err := net.Interfaces(); err == nil {
		for _, iface := range interfaces {
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}

			for _, a := range addrs {
				if parsed, _, err := net.ParseCIDR(a.String()); err == nil {
					if parsed.String() == ip.String() {
						return true
					}
				}
			}
		}
	}

	return false
}

// allowedHost reports whether host is permitted to reach the observability
// surface: empty, "localhost", this host's own name, or matching one of allowed
// (from envconfig.AllowedHosts) -- a "." entry matches any host under that
// suffix, anything else must match exactly. There is no baked-in TLD list;
// a deployment that wants foo.internal to pass names it explicitly.
func allowedHost(host string, allowed []string) bool {
	host = strings.ToLower(host)

	if host == "" || host == "localhost" {
		return true
	}

	if hostname, err := os.Hostname(); err == nil && host == strings.ToLower(hostname) {
		return true
	}

	for _, a := range allowed {
		if strings.HasPrefix(a, ".") {
			if strings.HasSuffix(host, a) {
				return true
			}
			continue
		}
		if host == a {
			return true
		}
	}

	return false
}

// allowedHostsMiddleware filters by Host header only when the listener is
// bound to a loopback address: it then passes hosts that are loopback,
// private, unspecified or local-interface IPs, or names accepted by
// allowedHost, and rejects the rest with 403. A listener bound to any other
// address (or a nil addr) is not filtered. allowed is the operator-configured
// allow-list (envconfig.AllowedHosts) checked by allowedHost.
func allowedHostsMiddleware(addr net.Addr, allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if addr == nil {
			c.Next()
			return
		}

		if addr, err := netip.ParseAddrPort(addr.String()); err == nil && !addr.Addr().IsLoopback() {
			c.Next()
			return
		}

		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}

		if addr, err := netip.ParseAddr(host); err == nil {
			if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || isLocalIP(addr) {
				c.Next()
				return
			}
		}

		if allowedHost(host, allowed) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
			return
		}

		c.AbortWithStatus(http.StatusForbidden)
	}
}
