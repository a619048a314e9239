package oui

import (
	"path/filepath"
	"testing"
)

func TestDB_LookupBuiltin(t *testing.T) {
	db := NewDB()
	if got := db.Lookup("F0:27:2D:11:22:33"); got != "Netgear" {
		t.Errorf("Lookup(Netgear prefix) = %q, want Netgear", got)
	}
	if got := db.Lookup("00:00:00:11:22:33"); got != "" {
		t.Errorf("Lookup(unknown prefix) = %q, want empty", got)
	}
}

func TestDB_LookupLocallyAdministered(t *testing.T) {
	db := NewDB()
	if got := db.Lookup("02:00:00:11:22:33"); got != "Random MAC" {
		t.Errorf("Lookup(locally administered) = %q, want Random MAC", got)
	}
}

func TestDB_Load(t *testing.T) {
	db := NewDB()
	db.Load(map[string]string{"a8bbcc": "Test Vendor"})
	if got := db.Lookup("A8:BB:CC:11:22:33"); got != "Test Vendor" {
		t.Errorf("Lookup(loaded prefix) = %q, want Test Vendor", got)
	}
}

func TestIsLocallyAdministered(t *testing.T) {
	tests := []struct {
		prefix string
		want   bool
	}{
		{"F0", false},
		{"02", true},
		{"06", true},
		{"0A", true},
		{"0E", true},
		{"00", false},
	}
	for _, tt := range tests {
		if got := IsLocallyAdministered(tt.prefix); got != tt.want {
			t.Errorf("IsLocallyAdministered(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestSaveFileLoadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json.gz")
	entries := map[string]string{
		"AABBCC": "Test Vendor",
		"112233": "Other Vendor",
	}

	if err := SaveFile(path, entries); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("LoadFile returned %d entries, want %d", len(got), len(entries))
	}
	for prefix, want := range entries {
		if got[prefix] != want {
			t.Errorf("entry[%q] = %q, want %q", prefix, got[prefix], want)
		}
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.json.gz")); err == nil {
		t.Fatal("LoadFile on missing file: want error, got nil")
	}
}
