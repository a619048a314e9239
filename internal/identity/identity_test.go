package identity

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	nextID      int64
	endpoints   map[int64]*Endpoint
	byMAC       map[string]int64
	byHostname  map[string]int64
	byIP        map[string]int64
	lastMACForIP map[string]string
	merged      [][2]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		endpoints:    make(map[int64]*Endpoint),
		byMAC:        make(map[string]int64),
		byHostname:   make(map[string]int64),
		byIP:         make(map[string]int64),
		lastMACForIP: make(map[string]string),
	}
}

func (f *fakeStore) FindEndpointByMAC(ctx context.Context, mac string) (*Endpoint, bool, error) {
	id, ok := f.byMAC[mac]
	if !ok {
		return nil, false, nil
	}
	return f.endpoints[id], true, nil
}

func (f *fakeStore) FindEndpointByHostname(ctx context.Context, hostname string) (*Endpoint, bool, error) {
	id, ok := f.byHostname[strings.ToLower(hostname)]
	if !ok {
		return nil, false, nil
	}
	return f.endpoints[id], true, nil
}

func (f *fakeStore) FindEndpointByIP(ctx context.Context, ip string) (*Endpoint, string, bool, error) {
	id, ok := f.byIP[ip]
	if !ok {
		return nil, "", false, nil
	}
	return f.endpoints[id], f.lastMACForIP[ip], true, nil
}

func (f *fakeStore) CreateEndpoint(ctx context.Context, name string) (int64, error) {
	f.nextID++
	id := f.nextID
	f.endpoints[id] = &Endpoint{ID: id, Name: name}
	return id, nil
}

func (f *fakeStore) UpsertAttribute(ctx context.Context, endpointID int64, attr Attribute) error {
	if attr.MAC != "" {
		f.byMAC[attr.MAC] = endpointID
	}
	if attr.Hostname != "" {
		f.byHostname[strings.ToLower(attr.Hostname)] = endpointID
	}
	if attr.IP != "" {
		f.byIP[attr.IP] = endpointID
		f.lastMACForIP[attr.IP] = attr.MAC
	}
	return nil
}

func (f *fakeStore) RenameIfAuto(ctx context.Context, endpointID int64, name string) error {
	ep := f.endpoints[endpointID]
	if ep.CustomName == "" {
		ep.Name = name
	}
	return nil
}

func (f *fakeStore) MergeEndpoints(ctx context.Context, survivor, loser int64) error {
	f.merged = append(f.merged, [2]int64{survivor, loser})
	for ip, id := range f.byIP {
		if id == loser {
			f.byIP[ip] = survivor
		}
	}
	for mac, id := range f.byMAC {
		if id == loser {
			f.byMAC[mac] = survivor
		}
	}
	delete(f.endpoints, loser)
	return nil
}

func (f *fakeStore) FindEndpointsBySoleIPv6Prefix(ctx context.Context, prefix string) ([]Endpoint, error) {
	return nil, nil
}

func (f *fakeStore) ListSoleIPv6Addresses(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) FindEndpointsByMAC(ctx context.Context, mac string) ([]Endpoint, error) {
	id, ok := f.byMAC[mac]
	if !ok {
		return nil, nil
	}
	return []Endpoint{*f.endpoints[id]}, nil
}

func (f *fakeStore) ListDuplicateMACs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestResolve_MACEqualityIsAuthoritative(t *testing.T) {
	store := newFakeStore()
	r := New(store, time.Minute)
	ctx := context.Background()

	id1, err := r.Resolve(ctx, Observation{MAC: "aa:bb:cc:dd:ee:01", IP: "192.168.1.10"})
	if err != nil {
		t.Fatal(err)
	}

	id2, err := r.Resolve(ctx, Observation{MAC: "aa:bb:cc:dd:ee:01", IP: "192.168.1.99"})
	if err != nil {
		t.Fatal(err)
	}

	if id1 != id2 {
		t.Errorf("same MAC with different IPs should resolve to one endpoint, got %d and %d", id1, id2)
	}
}

func TestResolve_IPCollisionDifferentMACCreatesTwoEndpoints(t *testing.T) {
	store := newFakeStore()
	r := New(store, time.Minute)
	ctx := context.Background()

	id1, _ := r.Resolve(ctx, Observation{IP: "192.168.1.20", MAC: "11:22:33:44:55:66"})
	id2, _ := r.Resolve(ctx, Observation{IP: "192.168.1.20", MAC: "77:88:99:aa:bb:cc"})

	if id1 == id2 {
		t.Error("a different MAC on the same IP must create a new endpoint, not merge")
	}
}

func TestResolve_HostnameUpgradeStripsLocalSuffix(t *testing.T) {
	store := newFakeStore()
	r := New(store, time.Minute)
	ctx := context.Background()

	id, _ := r.Resolve(ctx, Observation{IP: "192.168.1.30", MAC: "aa:11:22:33:44:55"})
	_, _ = r.Resolve(ctx, Observation{MAC: "aa:11:22:33:44:55", Hostname: "my-printer.local"})

	ep := store.endpoints[id]
	if ep.Name != "my-printer" {
		t.Errorf("Name = %q, want my-printer (suffix stripped)", ep.Name)
	}
}

func TestResolve_CustomNameSurvivesHostnameUpgrade(t *testing.T) {
	store := newFakeStore()
	r := New(store, time.Minute)
	ctx := context.Background()

	id, _ := r.Resolve(ctx, Observation{IP: "192.168.1.40", MAC: "aa:22:33:44:55:66"})
	store.endpoints[id].CustomName = "Living Room TV"
	store.endpoints[id].Name = "Living Room TV"

	_, _ = r.Resolve(ctx, Observation{MAC: "aa:22:33:44:55:66", Hostname: "some-device.lan"})

	if store.endpoints[id].Name != "Living Room TV" {
		t.Errorf("custom_name must win over an auto-detected hostname, got %q", store.endpoints[id].Name)
	}
}

func TestAutoMerge_SurvivorHasNonEmptyName(t *testing.T) {
	store := newFakeStore()
	r := New(store, time.Minute)
	ctx := context.Background()

	// One endpoint with a name, created first under a different key path.
	namedID, _ := store.CreateEndpoint(ctx, "MikesPC")
	store.byHostname["mikespc"] = namedID

	// Same MAC observed without a name initially resolves to a fresh id,
	// then auto-merge should fold it into the named endpoint.
	emptyID, _ := store.CreateEndpoint(ctx, "")
	store.byMAC["aa:bb:cc:11:22:33"] = emptyID

	if err := r.autoMerge(ctx, namedID, "aa:bb:cc:11:22:33"); err != nil {
		t.Fatal(err)
	}

	if len(store.merged) != 1 {
		t.Fatalf("expected one merge, got %d", len(store.merged))
	}
	if store.merged[0][0] != namedID {
		t.Errorf("survivor = %d, want named endpoint %d", store.merged[0][0], namedID)
	}
}

func TestIsIPv6PrivacyAddress(t *testing.T) {
	if !isIPv6PrivacyAddress("fe80::1") {
		t.Error("fe80::1 has no ff:fe middle bytes and should be treated as a privacy address")
	}
	if isIPv6PrivacyAddress("fe80::aabb:ccff:fedd:eeff") {
		t.Error("an address with ff:fe middle bytes is EUI-64 derived, not a privacy address")
	}
}
