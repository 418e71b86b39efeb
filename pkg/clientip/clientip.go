// Package clientip resolves the address used as the rate-limit and log key
// for a request.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the peer address of r. X-Forwarded-For is honoured
// only when the peer itself is a loopback proxy; anything else could spoof
// it to dodge the limiter.
func RealClientIP(r *http.Request) string {
	peer, ok := parse(r.RemoteAddr)
	if !ok {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if peer.IsLoopback() {
		if fwd, ok := lastForwarded(r.Header.Get("X-Forwarded-For")); ok {
			return fwd.String()
		}
	}
	return peer.String()
}

// lastForwarded returns the right-most valid hop, the one appended by the
// local proxy.
func lastForwarded(header string) (netip.Addr, bool) {
	hops := strings.Split(header, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		if addr, ok := parse(hops[i]); ok {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

func parse(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
