package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"netwatch.dev/netwatch/internal/capture"
	"netwatch.dev/netwatch/internal/classify"
	"netwatch.dev/netwatch/internal/dnscache"
	"netwatch.dev/netwatch/internal/identity"
	"netwatch.dev/netwatch/internal/logging"
	"netwatch.dev/netwatch/internal/scan"
	"netwatch.dev/netwatch/internal/store"
)

// fakePauser records every SetPaused call so tests can assert the API
// actually forwards capture-pause requests to the dissector, rather than
// only flipping its own local flag.
type fakePauser struct {
	calls []bool
}

func (f *fakePauser) SetPaused(paused bool) {
	f.calls = append(f.calls, paused)
}

func newTestServer(t *testing.T) (*Server, *fakePauser) {
	t.Helper()

	engine, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	logger := logging.New(logging.DefaultConfig())
	resolver := identity.New(engine, 5*time.Minute)
	recorder := store.NewScanRecorder(engine, resolver)
	scanner := scan.New(recorder, logger, func() []string { return nil })
	dnsCache := dnscache.New(100, time.Minute)
	classifier := classify.New(nil)
	pauser := &fakePauser{}

	var capMgr *capture.Manager // no privileged socket needed for the routes under test
	s := New(engine, scanner, capMgr, dnsCache, classifier, pauser, logger)
	return s, pauser
}

func TestHandleCapturePause_ForwardsToPauser(t *testing.T) {
	s, pauser := newTestServer(t)

	body, _ := json.Marshal(map[string]bool{"paused": true})
	req := httptest.NewRequest("POST", "/api/capture/pause", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(pauser.calls) != 1 || pauser.calls[0] != true {
		t.Fatalf("pauser.calls = %v, want [true]", pauser.calls)
	}
	if !s.paused.Load() {
		t.Error("s.paused should be true after pausing")
	}
}

func TestHandleSettings_RoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"data_retention_days": "45"})
	req := httptest.NewRequest("POST", "/api/settings", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("POST /api/settings status = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/settings", nil)
	w = httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("GET /api/settings status = %d, body = %s", w.Code, w.Body.String())
	}

	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["data_retention_days"] != "45" {
		t.Errorf("data_retention_days = %q, want 45", got["data_retention_days"])
	}
}

func TestHandleEndpointsTable_EmptyStore(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/endpoints/table", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var rows []store.EndpointRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %v, want empty", rows)
	}
}
