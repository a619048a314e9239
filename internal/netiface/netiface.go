// Package netiface enumerates monitorable network interfaces and reports
// their link state, using netlink where available and falling back to the
// standard library on platforms without it.
package netiface

import (
	"net"
	"strings"
)

// Info describes one candidate interface for capture.
type Info struct {
	Name      string
	HardwareAddr string
	Addrs     []string
	Up        bool
	LinkInfo  LinkInfo
}

// LinkInfo carries an interface's physical-layer details, as reported by
// the list-interfaces subcommand and GET /api/interfaces.
type LinkInfo struct {
	SpeedMbps uint32
	Duplex    string // "full", "half", "unknown"
	Driver    string
}

// excludedPrefixes lists interface name prefixes that are never candidates
// for passive monitoring: loopback, container/bridge plumbing, and tunnel
// or VPN adapters whose traffic is already captured on a physical NIC.
var excludedPrefixes = []string{
	"lo", "docker", "veth", "br-", "tun", "tap", "utun", "wg", "tailscale",
	"zt", "ppp", "virbr",
}

// IsMonitorable reports whether name is a reasonable passive-capture
// candidate: not loopback, not virtual plumbing, and carrying at least one
// unicast address.
func IsMonitorable(name string, addrs []net.Addr) bool {
	lower := strings.ToLower(name)
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.IsLoopback() || ipNet.IP.IsUnspecified() {
			continue
		}
		return true
	}
	return false
}

// List returns the set of interfaces eligible for monitoring, using the
// platform-specific enumeration in list_linux.go / list_other.go.
func List() ([]Info, error) {
	return listPlatform()
}
