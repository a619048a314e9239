package identity

import "net"

// isIPv6PrivacyAddress reports whether addr is a link-local IPv6 address
// that is NOT EUI-64 derived (i.e. lacks the ff:fe middle bytes), the
// signal used to avoid creating endpoint churn from ephemeral privacy
// addresses.
func isIPv6PrivacyAddress(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return false
	}
	if !ip.IsLinkLocalUnicast() {
		return false
	}
	b := ip.To16()
	return !(b[11] == 0xff && b[12] == 0xfe)
}

// ipv6Prefix64 returns the /64 network prefix of addr as a string key, or
// "" if addr is not a valid IPv6 address.
func ipv6Prefix64(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return ""
	}
	b := ip.To16()
	return net.IP(b[:8]).String()
}

// isIPv6Literal reports whether s parses as an IPv6 address, used to
// detect an endpoint whose display name is still its raw IPv6 address
// (i.e. no hostname has been learned for it yet).
func isIPv6Literal(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() == nil
}
