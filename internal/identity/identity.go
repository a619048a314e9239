// Package identity resolves observed (mac, ip, hostname) tuples to stable
// endpoint identities, handling DHCP-reuse guards, auto-merge, IPv6 /64
// prefix merges, and hostname upgrades.
package identity

import (
	"context"
	"strings"
	"time"
)

// localDomainSuffixes are stripped from a learned hostname before it
// becomes an endpoint's display name.
var localDomainSuffixes = []string{".local", ".lan", ".home", ".internal", ".localdomain", ".localhost"}

// Observation is one identity-bearing packet event.
type Observation struct {
	MAC         string
	IP          string
	Hostname    string
	InterfaceID string
	Timestamp   time.Time
}

// Endpoint is the subset of stored endpoint state the resolver needs to
// make resolution decisions. The storage engine owns the authoritative
// copy; this is a read view.
type Endpoint struct {
	ID         int64
	Name       string
	CustomName string
}

// Attribute is one historical (mac, ip, hostname) row attached to an
// endpoint.
type Attribute struct {
	EndpointID int64
	MAC        string
	IP         string
	Hostname   string
	CreatedAt  time.Time
}

// Store is the narrow persistence surface the resolver needs. The storage
// engine (internal/store) implements this against its single-writer queue.
type Store interface {
	// FindEndpointByMAC returns the endpoint with a matching attribute MAC,
	// if any.
	FindEndpointByMAC(ctx context.Context, mac string) (*Endpoint, bool, error)
	// FindEndpointByHostname returns the endpoint with a matching
	// case-insensitive hostname attribute, if any.
	FindEndpointByHostname(ctx context.Context, hostname string) (*Endpoint, bool, error)
	// FindEndpointByIP returns the endpoint most recently associated with
	// ip, and the MAC last seen with that IP (for the DHCP-reuse guard).
	FindEndpointByIP(ctx context.Context, ip string) (ep *Endpoint, lastMAC string, found bool, err error)
	// CreateEndpoint creates a new endpoint named name and returns its id.
	CreateEndpoint(ctx context.Context, name string) (int64, error)
	// UpsertAttribute records or refreshes one (endpoint, ip, hostname)
	// attribute row, with mac recorded alongside it.
	UpsertAttribute(ctx context.Context, endpointID int64, attr Attribute) error
	// RenameIfAuto updates an endpoint's name if it has no custom_name set.
	RenameIfAuto(ctx context.Context, endpointID int64, name string) error
	// MergeEndpoints merges loser into survivor: rewrites communications
	// FKs, copies unique attribute rows, deletes loser, in one transaction.
	MergeEndpoints(ctx context.Context, survivor, loser int64) error
	// FindEndpointsBySoleIPv6Prefix returns endpoints whose only recorded
	// address family is IPv6 and falls under prefix (a /64).
	FindEndpointsBySoleIPv6Prefix(ctx context.Context, prefix string) ([]Endpoint, error)
	// ListSoleIPv6Addresses returns one IPv6 address per endpoint whose
	// only recorded address family is IPv6, driving the periodic /64
	// merge sweep.
	ListSoleIPv6Addresses(ctx context.Context) ([]string, error)
	// FindEndpointsByMAC returns every endpoint that has ever recorded an
	// attribute with the given MAC.
	FindEndpointsByMAC(ctx context.Context, mac string) ([]Endpoint, error)
	// ListDuplicateMACs returns every MAC address attached to more than
	// one endpoint, driving the periodic MAC-duplicate merge sweep.
	ListDuplicateMACs(ctx context.Context) ([]string, error)
}

// Resolver implements the C3 resolution order and merge rules.
type Resolver struct {
	store             Store
	activeThreshold   time.Duration
}

// New creates a Resolver. activeThreshold is stored on the Resolver; the
// DHCP-reuse guard in Resolve does not consult it.
func New(store Store, activeThreshold time.Duration) *Resolver {
	if activeThreshold <= 0 {
		activeThreshold = 5 * time.Minute
	}
	return &Resolver{store: store, activeThreshold: activeThreshold}
}

// Resolve maps one observation to an endpoint id, creating or merging
// endpoints as required, and records the attribute row.
//
// Resolution order (first match wins): MAC equality, then case-insensitive
// hostname equality, then IP equality guarded against DHCP reuse, else
// create. MAC equality is authoritative — an IP-only match never merges
// across distinct MACs.
func (r *Resolver) Resolve(ctx context.Context, obs Observation) (int64, error) {
	if obs.MAC != "" {
		ep, found, err := r.store.FindEndpointByMAC(ctx, obs.MAC)
		if err != nil {
			return 0, err
		}
		if found {
			return r.finish(ctx, ep, obs)
		}
	}

	if obs.Hostname != "" {
		ep, found, err := r.store.FindEndpointByHostname(ctx, obs.Hostname)
		if err != nil {
			return 0, err
		}
		if found {
			return r.finish(ctx, ep, obs)
		}
	}

	if obs.IP != "" {
		ep, lastMAC, found, err := r.store.FindEndpointByIP(ctx, obs.IP)
		if err != nil {
			return 0, err
		}
		if found {
			// DHCP-reuse guard: a different MAC last recorded on the same
			// IP means this is a new device, not the old one come back.
			// How long ago that MAC was recorded is not considered.
			if obs.MAC != "" && lastMAC != "" && lastMAC != obs.MAC {
				return r.create(ctx, obs)
			}
			return r.finish(ctx, ep, obs)
		}
	}

	return r.create(ctx, obs)
}

func (r *Resolver) create(ctx context.Context, obs Observation) (int64, error) {
	if isIPv6PrivacyAddress(obs.IP) && obs.MAC == "" {
		// Privacy addresses without a MAC binding would only ever create
		// single-use endpoints; refuse to persist the churn.
		return 0, nil
	}

	name := bestIdentifier(obs)
	id, err := r.store.CreateEndpoint(ctx, name)
	if err != nil {
		return 0, err
	}
	if err := r.store.UpsertAttribute(ctx, id, Attribute{
		EndpointID: id, MAC: obs.MAC, IP: obs.IP, Hostname: obs.Hostname, CreatedAt: obs.Timestamp,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Resolver) finish(ctx context.Context, ep *Endpoint, obs Observation) (int64, error) {
	if err := r.store.UpsertAttribute(ctx, ep.ID, Attribute{
		EndpointID: ep.ID, MAC: obs.MAC, IP: obs.IP, Hostname: obs.Hostname, CreatedAt: obs.Timestamp,
	}); err != nil {
		return 0, err
	}

	if obs.Hostname != "" {
		if err := r.upgradeHostname(ctx, ep, obs.Hostname); err != nil {
			return 0, err
		}
	}

	if obs.MAC != "" {
		if err := r.autoMerge(ctx, ep.ID, obs.MAC); err != nil {
			return 0, err
		}
	}

	return ep.ID, nil
}

// autoMerge merges any other endpoint sharing obs.MAC into ep, choosing
// the survivor by has-non-empty-name, then lower id.
func (r *Resolver) autoMerge(ctx context.Context, epID int64, mac string) error {
	other, found, err := r.store.FindEndpointByMAC(ctx, mac)
	if err != nil || !found || other.ID == epID {
		return err
	}

	self := Endpoint{ID: epID}
	survivor, loser := survivorOf(self, *other)
	return r.store.MergeEndpoints(ctx, survivor, loser)
}

// survivorOf picks the merge survivor: has-non-empty-name wins, then
// lower id.
func survivorOf(a, b Endpoint) (survivor, loser int64) {
	aNamed := a.Name != ""
	bNamed := b.Name != ""
	if aNamed != bNamed {
		if aNamed {
			return a.ID, b.ID
		}
		return b.ID, a.ID
	}
	if a.ID < b.ID {
		return a.ID, b.ID
	}
	return b.ID, a.ID
}

// upgradeHostname renames an endpoint to a learned hostname, unless it
// already carries a custom_name override.
func (r *Resolver) upgradeHostname(ctx context.Context, ep *Endpoint, hostname string) error {
	if ep.CustomName != "" {
		return nil
	}
	name := stripLocalSuffix(hostname)
	if name == "" || name == ep.Name {
		return nil
	}
	return r.store.RenameIfAuto(ctx, ep.ID, name)
}

// MergeIPv6Prefix runs the /64 prefix merge: any endpoint whose only
// address is an IPv6 literal in the same /64 as ipv6 merges into
// survivorID. MergeIPv6PrefixSweep calls it; Resolve does not run it when
// an endpoint learns a hostname.
func (r *Resolver) MergeIPv6Prefix(ctx context.Context, survivorID int64, ipv6 string) error {
	prefix := ipv6Prefix64(ipv6)
	if prefix == "" {
		return nil
	}
	matches, err := r.store.FindEndpointsBySoleIPv6Prefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.ID == survivorID {
			continue
		}
		if err := r.store.MergeEndpoints(ctx, survivorID, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// MergeIPv6PrefixSweep is the periodic IPv6 prefix merge: it finds every
// /64 that currently has more than one
// sole-IPv6 endpoint (privacy-address churn having split what is really
// one host into several) and folds each group down to a single survivor.
func (r *Resolver) MergeIPv6PrefixSweep(ctx context.Context) error {
	addrs, err := r.store.ListSoleIPv6Addresses(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(addrs))
	for _, ip := range addrs {
		prefix := ipv6Prefix64(ip)
		if prefix == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true

		matches, err := r.store.FindEndpointsBySoleIPv6Prefix(ctx, prefix)
		if err != nil {
			return err
		}
		if len(matches) < 2 {
			continue
		}

		survivor := matches[0]
		for _, m := range matches[1:] {
			if sid, _ := ipv6SweepSurvivor(survivor, m); sid != survivor.ID {
				survivor = m
			}
		}
		if err := r.MergeIPv6Prefix(ctx, survivor.ID, ip); err != nil {
			return err
		}
	}
	return nil
}

// ipv6SweepSurvivor picks the better of two sole-IPv6 endpoints: one whose
// display name is still its raw IPv6 literal (no hostname learned yet)
// always loses to one with an actual resolved name, falling back to
// survivorOf's has-name/lower-id rule when both or neither has a name yet.
func ipv6SweepSurvivor(a, b Endpoint) (survivor, loser int64) {
	aRaw := isIPv6Literal(displayName(a))
	bRaw := isIPv6Literal(displayName(b))
	if aRaw != bRaw {
		if aRaw {
			return b.ID, a.ID
		}
		return a.ID, b.ID
	}
	return survivorOf(a, b)
}

func displayName(ep Endpoint) string {
	if ep.CustomName != "" {
		return ep.CustomName
	}
	return ep.Name
}

// MergeDuplicateMACsSweep is the periodic counterpart to autoMerge: it
// catches endpoints that share a MAC but were never merged because the
// shared MAC was never observed again after the split occurred (autoMerge
// only fires on the next observation carrying that MAC).
func (r *Resolver) MergeDuplicateMACsSweep(ctx context.Context) error {
	macs, err := r.store.ListDuplicateMACs(ctx)
	if err != nil {
		return err
	}

	for _, mac := range macs {
		matches, err := r.store.FindEndpointsByMAC(ctx, mac)
		if err != nil {
			return err
		}
		if len(matches) < 2 {
			continue
		}

		survivor := matches[0]
		for _, m := range matches[1:] {
			sid, lid := survivorOf(survivor, m)
			if sid != survivor.ID {
				survivor = m
			}
			if err := r.store.MergeEndpoints(ctx, sid, lid); err != nil {
				return err
			}
		}
	}
	return nil
}

func bestIdentifier(obs Observation) string {
	if obs.Hostname != "" {
		return stripLocalSuffix(obs.Hostname)
	}
	if obs.IP != "" {
		if !strings.Contains(obs.IP, ":") {
			return obs.IP // IPv4
		}
	}
	if obs.IP != "" {
		return obs.IP // IPv6
	}
	return obs.MAC
}

func stripLocalSuffix(hostname string) string {
	lower := strings.ToLower(hostname)
	for _, suffix := range localDomainSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return hostname[:len(hostname)-len(suffix)]
		}
	}
	return hostname
}
