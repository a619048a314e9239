package dissect

import "github.com/insomniacslk/dhcp/dhcpv4"

// DHCPBinding is a (mac, ip, hostname) triple learned from a DHCP
// REQUEST's option 12 or an ACK's assigned address, whichever the packet
// carries. Either IP or Hostname may be empty.
type DHCPBinding struct {
	MAC      string
	IP       string
	Hostname string
}

// parseDHCP extracts a DHCPBinding from a BOOTP/DHCP payload, or nil if the
// payload isn't a well-formed DHCPv4 packet carrying a usable binding.
func parseDHCP(payload []byte) *DHCPBinding {
	pkt, err := dhcpv4.FromBytes(payload)
	if err != nil {
		return nil
	}

	b := &DHCPBinding{MAC: pkt.ClientHWAddr.String()}
	if b.MAC == "" {
		return nil
	}

	if opt := pkt.Options.Get(dhcpv4.OptionHostName); opt != nil {
		b.Hostname = string(opt)
	}

	switch pkt.MessageType() {
	case dhcpv4.MessageTypeRequest:
		if !pkt.ClientIPAddr.IsUnspecified() {
			b.IP = pkt.ClientIPAddr.String()
		}
	case dhcpv4.MessageTypeAck:
		if !pkt.YourIPAddr.IsUnspecified() {
			b.IP = pkt.YourIPAddr.String()
		}
	}

	if b.IP == "" && b.Hostname == "" {
		return nil
	}
	return b
}
