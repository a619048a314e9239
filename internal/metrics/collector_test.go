package metrics

import (
	"testing"
	"time"

	"netwatch.dev/netwatch/internal/logging"
)

func TestCollector_Lifecycle(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	c := NewCollector(logger, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Start()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestRegistry_RecordAPIRequest(t *testing.T) {
	r := Get()
	r.RecordAPIRequest("GET", "/api/endpoints/table", 200, 0.01)
}

func TestRegistry_RecordScanPhase(t *testing.T) {
	r := Get()
	r.RecordScanPhase("arp", 1.5, 12)
}
