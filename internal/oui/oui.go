// Package oui resolves MAC address vendor prefixes to manufacturer names,
// supporting the classifier's OUI-lookup rule.
package oui

import (
	"strings"
	"sync"
)

// Entry is one vendor-prefix registration.
type Entry struct {
	Manufacturer string
}

// DB is a longest-prefix-match table over MA-L (6 hex), MA-M (7 hex), and
// MA-S (9 hex) IEEE allocations.
type DB struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewDB creates a DB seeded with the built-in vendor table. Callers may
// merge additional entries with Load for environments that ship an
// up-to-date IEEE registry snapshot on disk.
func NewDB() *DB {
	db := &DB{entries: make(map[string]Entry, len(builtinVendors))}
	for prefix, name := range builtinVendors {
		db.entries[prefix] = Entry{Manufacturer: name}
	}
	return db
}

// Load merges additional prefix→manufacturer entries, keyed by upper-case
// hex prefix (6, 7, or 9 characters), overriding any built-in entry with the
// same key.
func (db *DB) Load(entries map[string]string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for prefix, name := range entries {
		db.entries[strings.ToUpper(prefix)] = Entry{Manufacturer: name}
	}
}

// Lookup returns the manufacturer for a MAC address, or "" if unknown.
// Locally administered (randomized) addresses return "Random MAC" without
// consulting the table, since they carry no vendor assignment.
func (db *DB) Lookup(mac string) string {
	raw := normalize(mac)
	if len(raw) < 6 {
		return ""
	}

	if IsLocallyAdministered(raw) {
		return "Random MAC"
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(raw) >= 9 {
		if e, ok := db.entries[raw[:9]]; ok {
			return e.Manufacturer
		}
	}
	if len(raw) >= 7 {
		if e, ok := db.entries[raw[:7]]; ok {
			return e.Manufacturer
		}
	}
	if e, ok := db.entries[raw[:6]]; ok {
		return e.Manufacturer
	}
	return ""
}

// IsLocallyAdministered reports whether a normalized (upper-case, delimiter
// stripped) MAC prefix has the locally-administered bit set — the standard
// signal for a randomized or virtual MAC address.
func IsLocallyAdministered(rawUpperHex string) bool {
	if len(rawUpperHex) < 2 {
		return false
	}
	switch rawUpperHex[1] {
	case '2', '6', 'A', 'E':
		return true
	default:
		return false
	}
}

func normalize(mac string) string {
	r := strings.NewReplacer(":", "", "-", "", ".", "")
	return strings.ToUpper(r.Replace(mac))
}
