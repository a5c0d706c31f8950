package util

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of peers whose forwarded headers are believed.
type TrustedProxies struct {
	ranges []*net.IPNet
}

// NewTrustedProxies builds the allowlist from CIDR or bare-IP entries. Blank
// entries are skipped; an empty result means no proxy is trusted.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	ranges := make([]*net.IPNet, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		network, err := parseProxyEntry(entry)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, network)
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	return &TrustedProxies{ranges: ranges}, nil
}

// parseProxyEntry accepts either a CIDR or a single address, widening the
// latter to a host-sized network.
func parseProxyEntry(entry string) (*net.IPNet, error) {
	if strings.Contains(entry, "/") {
		_, network, err := net.ParseCIDR(entry)
		return network, err
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: entry}
	}
	bits := 8 * net.IPv6len
	if ip.To4() != nil {
		bits = 8 * net.IPv4len
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Contains reports whether ip falls in any trusted range. A nil receiver
// trusts nothing.
func (t *TrustedProxies) Contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	for _, network := range t.ranges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the originating caller address. X-Forwarded-For and
// X-Real-IP are consulted only when the direct peer is itself a trusted
// proxy; otherwise the peer address stands.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	peer := peerIP(r.RemoteAddr)
	if peer == nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !trusted.Contains(peer) {
		return peer.String()
	}

	// Walk the forwarded chain right to left; the first hop outside the
	// trusted set is the real client. A fully trusted chain falls back to
	// its leftmost entry.
	if chain := forwardedChain(r.Header.Get("X-Forwarded-For")); len(chain) > 0 {
		for i := len(chain) - 1; i >= 0; i-- {
			if !trusted.Contains(chain[i]) {
				return chain[i].String()
			}
		}
		return chain[0].String()
	}

	if realIP := ipOf(r.Header.Get("X-Real-IP")); realIP != nil {
		return realIP.String()
	}
	return peer.String()
}

func forwardedChain(header string) []net.IP {
	var chain []net.IP
	for _, hop := range strings.Split(header, ",") {
		if ip := ipOf(hop); ip != nil {
			chain = append(chain, ip)
		}
	}
	return chain
}

func peerIP(remoteAddr string) net.IP {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return ipOf(host)
	}
	return ipOf(remoteAddr)
}

func ipOf(raw string) net.IP {
	return net.ParseIP(strings.TrimSpace(raw))
}
