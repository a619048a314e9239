package netiface

import (
	"net"
	"testing"
)

func mustIPNet(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		t.Fatalf("ParseCIDR(%q): %v", cidr, err)
	}
	return ipNet
}

func TestIsMonitorable(t *testing.T) {
	tests := []struct {
		name  string
		iface string
		addrs []net.Addr
		want  bool
	}{
		{
			name:  "physical interface with unicast address",
			iface: "eth0",
			addrs: []net.Addr{mustIPNet(t, "192.168.1.10/24")},
			want:  true,
		},
		{
			name:  "loopback excluded by name",
			iface: "lo",
			addrs: []net.Addr{mustIPNet(t, "127.0.0.1/8")},
			want:  false,
		},
		{
			name:  "docker bridge excluded by name",
			iface: "docker0",
			addrs: []net.Addr{mustIPNet(t, "172.17.0.1/16")},
			want:  false,
		},
		{
			name:  "wireguard tunnel excluded by name",
			iface: "wg0",
			addrs: []net.Addr{mustIPNet(t, "10.6.0.1/24")},
			want:  false,
		},
		{
			name:  "physical interface with only loopback address",
			iface: "eth1",
			addrs: []net.Addr{mustIPNet(t, "127.0.0.2/8")},
			want:  false,
		},
		{
			name:  "physical interface with no addresses",
			iface: "eth2",
			addrs: nil,
			want:  false,
		},
		{
			name:  "unspecified address does not count",
			iface: "eth3",
			addrs: []net.Addr{mustIPNet(t, "0.0.0.0/32")},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMonitorable(tt.iface, tt.addrs); got != tt.want {
				t.Errorf("IsMonitorable(%q, ...) = %v, want %v", tt.iface, got, tt.want)
			}
		})
	}
}
