package scan

import (
	"context"
	"net"
	"time"
)

// snmpSysDescrRequest is a hand-encoded SNMPv2c GetRequest for
// 1.3.6.1.2.1.1.1.0 (sysDescr) with community "public". SNMP is a BER/ASN.1
// protocol; no encoder library is pulled in elsewhere in this codebase, so
// the single fixed request is encoded as a literal instead of a general
// BER writer.
var snmpSysDescrRequest = []byte{
	0x30, 0x29, // SEQUENCE, len 41
	0x02, 0x01, 0x01, // INTEGER version: v2c(1)
	0x04, 0x06, 'p', 'u', 'b', 'l', 'i', 'c', // OCTET STRING community
	0xa0, 0x1c, // GetRequest-PDU, len 28
	0x02, 0x04, 0x00, 0x00, 0x00, 0x01, // request-id
	0x02, 0x01, 0x00, // error-status
	0x02, 0x01, 0x00, // error-index
	0x30, 0x0e, // varbind list
	0x30, 0x0c, // varbind
	0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x01, 0x00, // OID 1.3.6.1.2.1.1.1.0
	0x05, 0x00, // NULL value
}

func (e *Engine) runSNMP(ctx context.Context, started time.Time) {
	targets := localIPv4Targets()
	for _, target := range targets {
		if e.cancelled() {
			return
		}
		if descr, ok := snmpSysDescr(target); ok {
			e.emit(ctx, started, Finding{Phase: PhaseSNMP, IP: target, Detail: descr})
		}
	}
}

func snmpSysDescr(ip string) (string, bool) {
	conn, err := net.DialTimeout("udp", net.JoinHostPort(ip, "161"), 500*time.Millisecond)
	if err != nil {
		return "", false
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(800 * time.Millisecond))
	if _, err := conn.Write(snmpSysDescrRequest); err != nil {
		return "", false
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return "", false
	}
	return parseSNMPOctetString(buf[:n])
}

// parseSNMPOctetString scans for the last OCTET STRING (tag 0x04) in the
// response, which for a sysDescr GetResponse is the varbind value.
func parseSNMPOctetString(resp []byte) (string, bool) {
	var last string
	for i := 0; i < len(resp)-1; i++ {
		if resp[i] != 0x04 {
			continue
		}
		length := int(resp[i+1])
		if length <= 0 || i+2+length > len(resp) {
			continue
		}
		last = string(resp[i+2 : i+2+length])
		i += 1 + length
	}
	if last == "" {
		return "", false
	}
	return last, true
}
