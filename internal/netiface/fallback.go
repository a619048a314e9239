package netiface

import "net"

// fallbackList enumerates interfaces with the standard library, for
// platforms or sandboxes without netlink access. Link speed/duplex are
// left unknown in this path.
func fallbackList() ([]Info, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []Info
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if !IsMonitorable(iface.Name, addrs) {
			continue
		}
		addrStrs := make([]string, 0, len(addrs))
		for _, a := range addrs {
			addrStrs = append(addrStrs, a.String())
		}
		out = append(out, Info{
			Name:         iface.Name,
			HardwareAddr: iface.HardwareAddr.String(),
			Addrs:        addrStrs,
			Up:           iface.Flags&net.FlagUp != 0,
			LinkInfo:     LinkInfo{Duplex: "unknown"},
		})
	}
	return out, nil
}
