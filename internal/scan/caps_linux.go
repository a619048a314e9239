//go:build linux

package scan

import "golang.org/x/sys/unix"

// hasRawSocketCapability reports whether this process can open raw/packet
// sockets, which ARP and IPv6 ND require. We probe rather than check
// CAP_NET_RAW directly since capability bits don't translate cleanly to a
// boolean without also accounting for root/user namespaces.
func hasRawSocketCapability() bool {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, 0)
	if err != nil {
		return false
	}
	unix.Close(fd)
	return true
}
