package store

import (
	"context"
	"testing"
	"time"

	"netwatch.dev/netwatch/internal/flowtable"
	"netwatch.dev/netwatch/internal/identity"
)

func TestEngine_CreateAndFindByMAC(t *testing.T) {
	e, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	id, err := e.CreateEndpoint(ctx, "kitchen-echo")
	if err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}
	if err := e.UpsertAttribute(ctx, id, identity.Attribute{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.168.1.5"}); err != nil {
		t.Fatalf("UpsertAttribute: %v", err)
	}

	ep, found, err := e.FindEndpointByMAC(ctx, "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("FindEndpointByMAC: %v", err)
	}
	if !found || ep.ID != id {
		t.Fatalf("expected to find endpoint %d, got %+v found=%v", id, ep, found)
	}
}

func TestEngine_FindByIPReturnsLastMAC(t *testing.T) {
	e, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	id, _ := e.CreateEndpoint(ctx, "")
	if err := e.UpsertAttribute(ctx, id, identity.Attribute{MAC: "11:22:33:44:55:66", IP: "192.168.1.9"}); err != nil {
		t.Fatal(err)
	}

	_, lastMAC, found, err := e.FindEndpointByIP(ctx, "192.168.1.9")
	if err != nil {
		t.Fatalf("FindEndpointByIP: %v", err)
	}
	if !found {
		t.Fatal("expected endpoint to be found")
	}
	if lastMAC != "11:22:33:44:55:66" {
		t.Errorf("lastMAC = %q, want 11:22:33:44:55:66", lastMAC)
	}
}

func TestEngine_MergeEndpointsRewritesAttributesAndCommunications(t *testing.T) {
	e, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	survivor, _ := e.CreateEndpoint(ctx, "named-device")
	loser, _ := e.CreateEndpoint(ctx, "")
	if err := e.UpsertAttribute(ctx, loser, identity.Attribute{MAC: "aa:aa:aa:aa:aa:aa", IP: "10.0.0.5"}); err != nil {
		t.Fatal(err)
	}
	if err := e.UpsertCommunication(ctx, flowtable.Row{
		Key:         flowtable.Key{SrcEndpointID: loser, DstEndpointID: survivor, Protocol: "tcp", SrcPort: 0, DstPort: 443},
		PacketCount: 5,
		Bytes:       500,
		FirstSeenAt: time.Now(),
		LastSeenAt:  time.Now(),
	}); err != nil {
		t.Fatalf("UpsertCommunication: %v", err)
	}

	if err := e.MergeEndpoints(ctx, survivor, loser); err != nil {
		t.Fatalf("MergeEndpoints: %v", err)
	}

	ep, found, err := e.FindEndpointByMAC(ctx, "aa:aa:aa:aa:aa:aa")
	if err != nil {
		t.Fatalf("FindEndpointByMAC: %v", err)
	}
	if !found || ep.ID != survivor {
		t.Errorf("attribute should now point at survivor %d, got %+v", survivor, ep)
	}

	if _, err := e.GetEndpointDetail(ctx, loser); err != ErrEndpointNotFound {
		t.Errorf("loser endpoint should be deleted, got err=%v", err)
	}

	ids, err := e.ListEndpointsByProtocol(ctx, "tcp")
	if err != nil {
		t.Fatalf("ListEndpointsByProtocol: %v", err)
	}
	if len(ids) != 1 || ids[0] != survivor {
		t.Errorf("communication should now point only at survivor %d, got %v", survivor, ids)
	}
}

func TestEngine_UpsertCommunicationAccumulates(t *testing.T) {
	e, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	a, _ := e.CreateEndpoint(ctx, "a")
	b, _ := e.CreateEndpoint(ctx, "b")
	key := flowtable.Key{SrcEndpointID: a, DstEndpointID: b, Protocol: "https", SrcPort: 0, DstPort: 443}

	for i := 0; i < 3; i++ {
		if err := e.UpsertCommunication(ctx, flowtable.Row{
			Key: key, PacketCount: 1, Bytes: 100, FirstSeenAt: time.Now(), LastSeenAt: time.Now(),
		}); err != nil {
			t.Fatalf("UpsertCommunication: %v", err)
		}
	}

	totals, err := e.ListProtocolTotals(ctx)
	if err != nil {
		t.Fatalf("ListProtocolTotals: %v", err)
	}
	if len(totals) != 1 || totals[0].PacketCount != 3 || totals[0].Bytes != 300 {
		t.Errorf("ListProtocolTotals = %+v, want one row accumulating to 3 packets / 300 bytes", totals)
	}
}

func TestEngine_SettingsRoundTrip(t *testing.T) {
	e, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	ctx := context.Background()

	if err := e.ApplySetting(ctx, "data_retention_days", "30"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := e.GetSetting(ctx, "data_retention_days")
	if err != nil || !ok || v != "30" {
		t.Errorf("GetSetting = %q, %v, %v; want 30, true, nil", v, ok, err)
	}

	if err := e.ApplySetting(ctx, "data_retention_days", "60"); err != nil {
		t.Fatal(err)
	}
	v, _, _ = e.GetSetting(ctx, "data_retention_days")
	if v != "60" {
		t.Errorf("GetSetting after update = %q, want 60", v)
	}
}
