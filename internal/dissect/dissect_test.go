package dissect

import (
	"testing"
	"time"
)

func TestProtocolTag_WellKnownDestination(t *testing.T) {
	if got := ProtocolTag(51000, 443); got != "HTTPS" {
		t.Errorf("ProtocolTag(51000, 443) = %q, want HTTPS", got)
	}
}

func TestProtocolTag_EphemeralDestinationFallsBackToSourcePort(t *testing.T) {
	// Destination is ephemeral (>=32768); source port 53 is well-known, so
	// the tag should come from the source port instead.
	if got := ProtocolTag(53, 40000); got != "DNS" {
		t.Errorf("ProtocolTag(53, 40000) = %q, want DNS (source-port fallback)", got)
	}
}

func TestProtocolTag_WellKnownRangeDestinationNoFallback(t *testing.T) {
	// Destination 139 is well-known (SMB); even though the source port
	// happens to be a well-known DNS port, the destination wins and no
	// fallback should occur.
	if got := ProtocolTag(53, 139); got != "SMB" {
		t.Errorf("ProtocolTag(53, 139) = %q, want SMB (no ephemeral fallback below 32768)", got)
	}
}

func TestProtocolTag_UnknownPortNumericFallback(t *testing.T) {
	if got := ProtocolTag(12345, 50000); got != "50000" {
		t.Errorf("ProtocolTag(12345, 50000) = %q, want \"50000\"", got)
	}
}

func TestDissect_ShortFrameIsMalformed(t *testing.T) {
	d := New(nil)
	_, err := d.Dissect("eth0", []byte{0x01, 0x02}, time.Now())
	if err == nil {
		t.Error("expected ErrMalformed for a frame shorter than an Ethernet header")
	}
}

func TestDissect_PausedReturnsNil(t *testing.T) {
	d := New(func() bool { return true })
	obs, err := d.Dissect("eth0", make([]byte, 64), time.Now())
	if obs != nil || err != nil {
		t.Errorf("expected (nil, nil) while paused, got (%v, %v)", obs, err)
	}
}

func TestDissect_ARPReply(t *testing.T) {
	frame := make([]byte, ethHeaderLen+28)
	copy(frame[12:14], []byte{0x08, 0x06}) // ARP ethertype

	arp := frame[ethHeaderLen:]
	arp[6], arp[7] = 0x00, 0x02 // opcode: reply
	copy(arp[8:14], []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x01})
	copy(arp[14:18], []byte{192, 168, 1, 20})

	d := New(nil)
	obs, err := d.Dissect("eth0", frame, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs == nil || obs.ARP == nil {
		t.Fatal("expected an ARP binding")
	}
	if obs.ARP.IP != "192.168.1.20" {
		t.Errorf("ARP.IP = %q, want 192.168.1.20", obs.ARP.IP)
	}
	if obs.ARP.MAC != "aa:bb:cc:dd:ee:01" {
		t.Errorf("ARP.MAC = %q, want aa:bb:cc:dd:ee:01", obs.ARP.MAC)
	}
}

func TestDissect_ARPRequestIgnored(t *testing.T) {
	frame := make([]byte, ethHeaderLen+28)
	copy(frame[12:14], []byte{0x08, 0x06})
	arp := frame[ethHeaderLen:]
	arp[6], arp[7] = 0x00, 0x01 // opcode: request

	d := New(nil)
	obs, err := d.Dissect("eth0", frame, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs != nil {
		t.Error("ARP requests should not produce a binding (sender not yet trustworthy)")
	}
}

func TestParseHTTPHost(t *testing.T) {
	req := "GET /index.html HTTP/1.1\r\nHost: example.local\r\nUser-Agent: test\r\n\r\n"
	if got := parseHTTPHost([]byte(req)); got != "example.local" {
		t.Errorf("parseHTTPHost() = %q, want example.local", got)
	}
}

func TestParseHTTPHost_NotHTTPReturnsEmpty(t *testing.T) {
	if got := parseHTTPHost([]byte{0x16, 0x03, 0x01}); got != "" {
		t.Errorf("parseHTTPHost() = %q, want empty for non-HTTP payload", got)
	}
}
