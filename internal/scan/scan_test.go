package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"netwatch.dev/netwatch/internal/logging"
)

type fakeRecorder struct {
	mu       sync.Mutex
	findings []Finding
}

func (f *fakeRecorder) RecordFinding(ctx context.Context, started time.Time, find Finding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findings = append(f.findings, find)
	return nil
}

func TestEngine_RejectsConcurrentStart(t *testing.T) {
	rec := &fakeRecorder{}
	e := New(rec, logging.New(logging.DefaultConfig()), func() []string { return nil })

	if err := e.Start(context.Background(), []Phase{PhaseICMP}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := e.Start(context.Background(), []Phase{PhaseICMP}); err != ErrScanAlreadyRunning {
		t.Errorf("second concurrent Start = %v, want ErrScanAlreadyRunning", err)
	}
	e.Stop()
}

func TestEngine_StopCancelsAndReportsState(t *testing.T) {
	rec := &fakeRecorder{}
	e := New(rec, logging.New(logging.DefaultConfig()), func() []string { return nil })

	if err := e.Start(context.Background(), []Phase{PhaseARP, PhaseND, PhaseICMP, PhasePort}); err != nil {
		t.Fatal(err)
	}
	e.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !e.Status().Running {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := e.Status()
	if snap.Running {
		t.Fatal("scan should have stopped after cancellation")
	}
	if snap.CurrentPhase != PhaseCancelled {
		t.Errorf("CurrentPhase = %q, want cancelled", snap.CurrentPhase)
	}
}

func TestParseARPReply(t *testing.T) {
	frame := buildARPReplyFixture()
	ip, mac, ok := parseARPReply(frame)
	if !ok {
		t.Fatal("expected a valid ARP reply to parse")
	}
	if ip != "192.168.1.50" || mac != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("got ip=%q mac=%q", ip, mac)
	}
}

func buildARPReplyFixture() []byte {
	frame := make([]byte, 42)
	frame[12], frame[13] = 0x08, 0x06 // ethertype ARP
	arp := frame[14:]
	arp[6], arp[7] = 0x00, 0x02 // opcode: reply
	copy(arp[8:14], []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff})
	copy(arp[14:18], []byte{192, 168, 1, 50})
	return frame
}

func TestParseSNMPOctetString(t *testing.T) {
	// A minimal response whose only OCTET STRING payload is the sysDescr.
	resp := []byte{0x04, 0x05, 'L', 'i', 'n', 'u', 'x'}
	descr, ok := parseSNMPOctetString(resp)
	if !ok || descr != "Linux" {
		t.Errorf("parseSNMPOctetString = %q, %v, want Linux, true", descr, ok)
	}
}

func TestParseSSDPLocation(t *testing.T) {
	data := []byte("HTTP/1.1 200 OK\r\nLOCATION: http://192.168.1.5:1900/desc.xml\r\n\r\n")
	got := parseSSDPLocation(data)
	if got != "http://192.168.1.5:1900/desc.xml" {
		t.Errorf("parseSSDPLocation = %q", got)
	}
}
