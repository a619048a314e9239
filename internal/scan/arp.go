package scan

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/mdlayher/packet"

	"netwatch.dev/netwatch/internal/errs"
)

const etherTypeARP = 0x0806

func (e *Engine) runARP(ctx context.Context, started time.Time) {
	if !hasRawSocketCapability() {
		e.logger.Warn("arp sweep skipped, raw sockets unavailable", "error", errs.ErrScanUnavailable)
		return
	}

	for _, ifaceName := range e.ifaceNames() {
		if e.cancelled() {
			return
		}
		e.sweepInterfaceARP(ctx, started, ifaceName)
	}
}

func (e *Engine) sweepInterfaceARP(ctx context.Context, started time.Time, ifaceName string) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return
	}
	conn, err := packet.Listen(ifi, packet.Raw, etherTypeARP, nil)
	if err != nil {
		e.logger.Warn("arp listen failed", "interface", ifaceName, "error", err)
		return
	}
	defer conn.Close()

	localIP := firstIPv4(ifi)
	if localIP == nil {
		return
	}

	targets := hostsForInterface(ifi)
	for _, target := range targets {
		if e.cancelled() {
			return
		}
		frame := buildARPRequest(ifi.HardwareAddr, localIP, net.ParseIP(target))
		conn.WriteTo(frame, &packet.Addr{HardwareAddr: broadcastMAC})
	}

	deadline := time.Now().Add(2 * time.Second)
	buf := make([]byte, 128)
	for time.Now().Before(deadline) {
		if e.cancelled() {
			return
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			continue
		}
		ip, mac, ok := parseARPReply(buf[:n])
		if !ok {
			continue
		}
		_ = addr
		e.emit(ctx, started, Finding{Phase: PhaseARP, IP: ip, MAC: mac})
	}
}

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func firstIPv4(ifi *net.Interface) net.IP {
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}

func hostsForInterface(ifi *net.Interface) []string {
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil {
			continue
		}
		out = append(out, hostsInSubnet(ipNet)...)
	}
	return out
}

// buildARPRequest constructs a raw Ethernet frame carrying an ARP who-has
// request for targetIP, sourced from srcMAC/srcIP.
func buildARPRequest(srcMAC net.HardwareAddr, srcIP, targetIP net.IP) []byte {
	frame := make([]byte, 42)
	copy(frame[0:6], broadcastMAC)
	copy(frame[6:12], srcMAC)
	binary.BigEndian.PutUint16(frame[12:14], etherTypeARP)

	arp := frame[14:42]
	binary.BigEndian.PutUint16(arp[0:2], 1)      // hardware type: Ethernet
	binary.BigEndian.PutUint16(arp[2:4], 0x0800) // protocol type: IPv4
	arp[4] = 6                                   // hardware address length
	arp[5] = 4                                   // protocol address length
	binary.BigEndian.PutUint16(arp[6:8], 1)      // opcode: request
	copy(arp[8:14], srcMAC)
	copy(arp[14:18], srcIP.To4())
	// target hardware address left zero
	copy(arp[24:28], targetIP.To4())
	return frame
}

// parseARPReply extracts the sender (ip, mac) pair from an ARP reply
// frame, or ok=false if the frame is not a well-formed reply.
func parseARPReply(frame []byte) (ip, mac string, ok bool) {
	if len(frame) < 42 {
		return "", "", false
	}
	etherType := binary.BigEndian.Uint16(frame[12:14])
	if etherType != etherTypeARP {
		return "", "", false
	}
	arp := frame[14:]
	if len(arp) < 28 {
		return "", "", false
	}
	opcode := binary.BigEndian.Uint16(arp[6:8])
	if opcode != 2 {
		return "", "", false
	}
	senderMAC := net.HardwareAddr(arp[8:14])
	senderIP := net.IP(arp[14:18])
	return senderIP.String(), senderMAC.String(), true
}
