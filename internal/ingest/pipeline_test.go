package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netwatch.dev/netwatch/internal/classify"
	"netwatch.dev/netwatch/internal/dissect"
	"netwatch.dev/netwatch/internal/dnscache"
	"netwatch.dev/netwatch/internal/flowtable"
	"netwatch.dev/netwatch/internal/identity"
	"netwatch.dev/netwatch/internal/logging"
	"netwatch.dev/netwatch/internal/metrics"
	"netwatch.dev/netwatch/internal/oui"
)

// fakeStore is a minimal in-memory identity.Store backing the resolver
// under test; every IP/MAC maps to its own endpoint on first sighting.
type fakeStore struct {
	byMAC  map[string]int64
	byIP   map[string]int64
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{byMAC: map[string]int64{}, byIP: map[string]int64{}}
}

func (s *fakeStore) FindEndpointByMAC(ctx context.Context, mac string) (*identity.Endpoint, bool, error) {
	if id, ok := s.byMAC[mac]; ok {
		return &identity.Endpoint{ID: id}, true, nil
	}
	return nil, false, nil
}

func (s *fakeStore) FindEndpointByHostname(ctx context.Context, hostname string) (*identity.Endpoint, bool, error) {
	return nil, false, nil
}

func (s *fakeStore) FindEndpointByIP(ctx context.Context, ip string) (*identity.Endpoint, string, bool, error) {
	if id, ok := s.byIP[ip]; ok {
		return &identity.Endpoint{ID: id}, "", true, nil
	}
	return nil, "", false, nil
}

func (s *fakeStore) CreateEndpoint(ctx context.Context, name string) (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) UpsertAttribute(ctx context.Context, endpointID int64, attr identity.Attribute) error {
	if attr.MAC != "" {
		s.byMAC[attr.MAC] = endpointID
	}
	if attr.IP != "" {
		s.byIP[attr.IP] = endpointID
	}
	return nil
}

func (s *fakeStore) RenameIfAuto(ctx context.Context, endpointID int64, name string) error { return nil }

func (s *fakeStore) MergeEndpoints(ctx context.Context, survivor, loser int64) error { return nil }

func (s *fakeStore) FindEndpointsBySoleIPv6Prefix(ctx context.Context, prefix string) ([]identity.Endpoint, error) {
	return nil, nil
}

func (s *fakeStore) ListSoleIPv6Addresses(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) FindEndpointsByMAC(ctx context.Context, mac string) ([]identity.Endpoint, error) {
	if id, ok := s.byMAC[mac]; ok {
		return []identity.Endpoint{{ID: id}}, nil
	}
	return nil, nil
}

func (s *fakeStore) ListDuplicateMACs(ctx context.Context) ([]string, error) {
	return nil, nil
}

// fakeWriter records everything the pipeline flushes or classifies,
// without touching a real database.
type fakeWriter struct {
	flushed       [][]flowtable.Row
	mdnsIP        string
	mdnsHostname  string
	autoTypes     map[int64]string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{autoTypes: map[int64]string{}}
}

func (w *fakeWriter) FlushRows(ctx context.Context, rows []flowtable.Row) error {
	w.flushed = append(w.flushed, rows)
	return nil
}

func (w *fakeWriter) RecordMDNS(ctx context.Context, ip, hostname string, services []string) error {
	w.mdnsIP, w.mdnsHostname = ip, hostname
	return nil
}

func (w *fakeWriter) SetAutoDeviceType(ctx context.Context, id int64, deviceType string) error {
	w.autoTypes[id] = deviceType
	return nil
}

func (w *fakeWriter) SetVendorModel(ctx context.Context, id int64, vendor, model string) error {
	return nil
}

func newTestEngine(writer Writer) *Engine {
	resolver := identity.New(newFakeStore(), 5*time.Minute)
	return &Engine{
		resolver:   resolver,
		flows:      flowtable.New(100),
		dnsCache:   dnscache.New(100, time.Minute),
		classifier: classify.New(oui.NewDB()),
		writer:     writer,
		logger:     logging.New(logging.DefaultConfig()),
		metrics:    metrics.Get(),
	}
}

func flowObservation(iface, srcMAC, srcIP, dstMAC, dstIP string, ts time.Time) *dissect.Observation {
	return &dissect.Observation{
		Interface: iface,
		Timestamp: ts,
		Flow: &dissect.Flow{
			SrcIP: srcIP, DstIP: dstIP, SrcMAC: srcMAC, DstMAC: dstMAC,
			Protocol: "TCP", SrcPort: 5000, DstPort: 443, Bytes: 1000,
		},
	}
}

func TestEngine_ObserveFlowAggregates(t *testing.T) {
	e := newTestEngine(newFakeWriter())

	now := time.Now()
	obs := flowObservation("eth0", "aa:bb:cc:dd:ee:01", "192.168.1.10", "aa:bb:cc:dd:ee:02", "8.8.8.8", now)

	e.observeFlow(context.Background(), obs)

	_, _, size := e.flows.Stats()
	assert.Equal(t, 1, size, "expected one aggregated conversation row")
}

func TestEngine_ObserveFlowClassifiesDestinationAsInternet(t *testing.T) {
	w := newFakeWriter()
	e := newTestEngine(w)

	now := time.Now()
	obs := flowObservation("eth0", "aa:bb:cc:dd:ee:01", "192.168.1.10", "aa:bb:cc:dd:ee:02", "8.8.8.8", now)
	e.observeFlow(context.Background(), obs)

	require.NotEmpty(t, w.autoTypes)
	found := false
	for _, dt := range w.autoTypes {
		if dt == string(classify.Internet) {
			found = true
		}
	}
	assert.True(t, found, "a public destination IP should classify as internet")
}

func TestEngine_LearnHostnamePopulatesDNSCache(t *testing.T) {
	e := newTestEngine(newFakeWriter())

	obs := &dissect.Observation{Interface: "eth0", Timestamp: time.Now()}
	e.learnHostname(context.Background(), obs, "printer.local", "192.168.1.50")

	hostname, found := e.dnsCache.LookupIP("192.168.1.50")
	require.True(t, found)
	assert.Equal(t, "printer.local", hostname)
}

func TestEngine_FlushSkipsWhenNothingDirty(t *testing.T) {
	w := newFakeWriter()
	e := newTestEngine(w)

	e.flush(context.Background())
	assert.Empty(t, w.flushed, "flush must not call the writer when there are no dirty rows")
}

func TestEngine_FlushSendsDirtyRows(t *testing.T) {
	w := newFakeWriter()
	e := newTestEngine(w)

	now := time.Now()
	obs := flowObservation("eth0", "aa:bb:cc:dd:ee:01", "192.168.1.10", "aa:bb:cc:dd:ee:02", "8.8.8.8", now)
	e.observeFlow(context.Background(), obs)

	e.flush(context.Background())
	require.Len(t, w.flushed, 1)
	assert.Len(t, w.flushed[0], 1)
}
