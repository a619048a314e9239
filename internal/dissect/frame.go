package dissect

import (
	"net"
	"time"

	"netwatch.dev/netwatch/internal/errs"
)

const ethHeaderLen = 14

// Dissector decodes frames from one or more interfaces. It holds no
// per-packet state; Paused is the only field a caller mutates, and it is
// read once per call.
type Dissector struct {
	Paused func() bool
}

// New creates a Dissector. paused, if non-nil, is polled once per frame;
// when it returns true the frame is dropped without any parsing.
func New(paused func() bool) *Dissector {
	if paused == nil {
		paused = func() bool { return false }
	}
	return &Dissector{Paused: paused}
}

// Dissect decodes one raw Ethernet frame captured on iface at ts. It never
// panics on malformed input: short or inconsistent headers yield a nil
// Observation and errs.ErrMalformed, which the caller counts and discards.
func (d *Dissector) Dissect(iface string, data []byte, ts time.Time) (*Observation, error) {
	if d.Paused() {
		return nil, nil
	}
	if len(data) < ethHeaderLen {
		return nil, errs.ErrMalformed
	}

	dstMAC := macString(data[0:6])
	srcMAC := macString(data[6:12])
	etherType := be16(data[12:14])
	payload := data[ethHeaderLen:]

	obs := &Observation{Interface: iface, Timestamp: ts}

	switch etherType {
	case etherTypeARP:
		return dissectARP(obs, payload)
	case etherTypeIPv4:
		return d.dissectIPv4(obs, srcMAC, dstMAC, payload)
	case etherTypeIPv6:
		return d.dissectIPv6(obs, srcMAC, dstMAC, payload)
	default:
		return nil, nil
	}
}

func dissectARP(obs *Observation, p []byte) (*Observation, error) {
	// ARP: hw type(2) proto type(2) hw len(1) proto len(1) op(2) then
	// sender hw/proto, target hw/proto. For Ethernet/IPv4, hw len=6,
	// proto len=4, giving a 28-byte payload.
	if len(p) < 28 {
		return nil, errs.ErrMalformed
	}
	op := be16(p[6:8])
	if op != 2 { // only replies carry a trustworthy sender binding
		return nil, nil
	}
	senderMAC := macString(p[8:14])
	senderIP := net.IP(p[14:18]).String()

	obs.ARP = &ARPBinding{IP: senderIP, MAC: senderMAC}
	return obs, nil
}

func (d *Dissector) dissectIPv4(obs *Observation, srcMAC, dstMAC string, p []byte) (*Observation, error) {
	if len(p) < 20 {
		return nil, errs.ErrMalformed
	}
	ihl := int(p[0]&0x0F) * 4
	if ihl < 20 || len(p) < ihl {
		return nil, errs.ErrMalformed
	}
	totalLen := int(be16(p[2:4]))
	proto := p[9]
	srcIP := net.IP(p[12:16]).String()
	dstIP := net.IP(p[16:20]).String()

	transport := p[ihl:]
	if totalLen > 0 && totalLen <= len(p) {
		transport = p[ihl:totalLen]
	}

	return d.dissectTransport(obs, srcMAC, dstMAC, srcIP, dstIP, proto, transport, len(p))
}

func (d *Dissector) dissectIPv6(obs *Observation, srcMAC, dstMAC string, p []byte) (*Observation, error) {
	if len(p) < 40 {
		return nil, errs.ErrMalformed
	}
	payloadLen := int(be16(p[4:6]))
	nextHeader := p[6]
	srcIP := net.IP(p[8:24]).String()
	dstIP := net.IP(p[24:40]).String()

	transport := p[40:]
	if payloadLen > 0 && 40+payloadLen <= len(p) {
		transport = p[40 : 40+payloadLen]
	}

	return d.dissectTransport(obs, srcMAC, dstMAC, srcIP, dstIP, nextHeader, transport, len(p))
}

func (d *Dissector) dissectTransport(obs *Observation, srcMAC, dstMAC, srcIP, dstIP string, proto byte, t []byte, totalBytes int) (*Observation, error) {
	switch proto {
	case ipProtoTCP:
		return d.dissectTCP(obs, srcMAC, dstMAC, srcIP, dstIP, t, totalBytes)
	case ipProtoUDP:
		return d.dissectUDP(obs, srcMAC, dstMAC, srcIP, dstIP, t, totalBytes)
	case ipProtoICMP, ipProtoICMPv6:
		obs.Flow = &Flow{
			SrcIP: srcIP, DstIP: dstIP, SrcMAC: srcMAC, DstMAC: dstMAC,
			Protocol: "ICMP", Bytes: uint64(totalBytes),
		}
		return obs, nil
	default:
		return nil, nil
	}
}

func (d *Dissector) dissectTCP(obs *Observation, srcMAC, dstMAC, srcIP, dstIP string, t []byte, totalBytes int) (*Observation, error) {
	if len(t) < 20 {
		return nil, errs.ErrMalformed
	}
	srcPort := be16(t[0:2])
	dstPort := be16(t[2:4])
	dataOffset := int(t[12]>>4) * 4
	if dataOffset < 20 {
		dataOffset = 20
	}

	obs.Flow = &Flow{
		SrcIP: srcIP, DstIP: dstIP, SrcMAC: srcMAC, DstMAC: dstMAC,
		Protocol: ProtocolTag(srcPort, dstPort),
		SrcPort:  srcPort, DstPort: dstPort, Bytes: uint64(totalBytes),
	}

	if dataOffset < len(t) {
		app := t[dataOffset:]
		inspectTCPApplication(obs, dstIP, app)
	}
	return obs, nil
}

func (d *Dissector) dissectUDP(obs *Observation, srcMAC, dstMAC, srcIP, dstIP string, t []byte, totalBytes int) (*Observation, error) {
	if len(t) < 8 {
		return nil, errs.ErrMalformed
	}
	srcPort := be16(t[0:2])
	dstPort := be16(t[2:4])

	obs.Flow = &Flow{
		SrcIP: srcIP, DstIP: dstIP, SrcMAC: srcMAC, DstMAC: dstMAC,
		Protocol: ProtocolTag(srcPort, dstPort),
		SrcPort:  srcPort, DstPort: dstPort, Bytes: uint64(totalBytes),
	}

	payload := t[8:]
	switch {
	case srcPort == 53 || dstPort == 53:
		obs.DNS = parseDNSAnswers(payload)
	case srcPort == 5353 || dstPort == 5353:
		obs.MDNS = parseMDNSAnnouncement(payload, srcIP)
	case dstPort == 67 || dstPort == 68:
		obs.DHCP = parseDHCP(payload)
	}
	return obs, nil
}

func inspectTCPApplication(obs *Observation, dstIP string, app []byte) {
	if len(app) == 0 {
		return
	}
	if app[0] == 0x16 { // TLS handshake record
		if host, err := parseSNI(app); err == nil && host != "" {
			obs.SNI = &SNIBinding{DstIP: dstIP, Hostname: host}
		}
		return
	}
	if host := parseHTTPHost(app); host != "" {
		obs.HTTP = &HTTPHostBinding{DstIP: dstIP, Hostname: host}
	}
}
