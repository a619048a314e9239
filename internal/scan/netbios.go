package scan

import (
	"context"
	"net"
	"strings"
	"time"
)

// netbiosNameQuery is a NBSTAT (node status) request for "*" targeting
// UDP/137, encoded per RFC 1002 §4.2.1/4.2.18.
var netbiosNameQuery = []byte{
	0x82, 0x28, // transaction ID
	0x00, 0x00, // flags
	0x00, 0x01, // questions
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // answer/authority/additional counts
	0x20,                               // name length
	0x43, 0x4b, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41,
	0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41,
	0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41,
	0x00,
	0x00, 0x21, // type: NBSTAT
	0x00, 0x01, // class: IN
}

func (e *Engine) runNetBIOS(ctx context.Context, started time.Time) {
	targets := localIPv4Targets()
	for _, target := range targets {
		if e.cancelled() {
			return
		}
		if name, ok := netbiosQuery(target); ok {
			e.emit(ctx, started, Finding{Phase: PhaseNetBIOS, IP: target, Detail: name})
		}
	}
}

func netbiosQuery(ip string) (string, bool) {
	conn, err := net.DialTimeout("udp", net.JoinHostPort(ip, "137"), 500*time.Millisecond)
	if err != nil {
		return "", false
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(800 * time.Millisecond))
	if _, err := conn.Write(netbiosNameQuery); err != nil {
		return "", false
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return "", false
	}
	return parseNetBIOSName(buf[:n])
}

// parseNetBIOSName extracts the first 15-character (padded) name entry
// from an NBSTAT response's name list.
func parseNetBIOSName(resp []byte) (string, bool) {
	if len(resp) < 57 {
		return "", false
	}
	numNames := int(resp[56])
	if numNames == 0 || len(resp) < 57+1+16 {
		return "", false
	}
	nameBytes := resp[57 : 57+15]
	return strings.TrimRight(string(nameBytes), " "), true
}
