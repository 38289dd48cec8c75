package ipmatch

import (
	"net"
	"strings"
)

// Matches reports whether candidate falls under spec. A spec is either a
// single IPv4/IPv6 address (byte-exact match after normalization) or a CIDR
// block (prefix containment). Candidates and blocks of different families
// never match, and malformed input never matches.
func Matches(candidate, spec string) bool {
	ip := net.ParseIP(strings.TrimSpace(candidate))
	if ip == nil {
		return false
	}

	spec = strings.TrimSpace(spec)
	if single := net.ParseIP(spec); single != nil {
		return ip.Equal(single)
	}

	_, block, err := net.ParseCIDR(spec)
	if err != nil {
		return false
	}
	// net.IPNet.Contains maps IPv4 candidates into IPv6 ranges; keep the
	// families strictly separate instead.
	if (ip.To4() == nil) != (block.IP.To4() == nil) {
		return false
	}
	return block.Contains(ip)
}

// ValidSpec reports whether spec parses as a single IPv4/IPv6 address or a
// CIDR block. Used to reject rules at write time.
func ValidSpec(spec string) bool {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return false
	}
	if ip := net.ParseIP(spec); ip != nil {
		return true
	}
	_, _, err := net.ParseCIDR(spec)
	return err == nil
}

// Normalize returns the canonical textual form of spec so that equivalent
// inputs (e.g. upper/lower case IPv6) collide on the unique index.
func Normalize(spec string) string {
	spec = strings.TrimSpace(spec)
	if ip := net.ParseIP(spec); ip != nil {
		return ip.String()
	}
	if _, block, err := net.ParseCIDR(spec); err == nil {
		return block.String()
	}
	return spec
}
