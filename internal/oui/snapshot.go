package oui

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a gzip-compressed JSON snapshot of prefix→manufacturer
// entries, as produced by tools/oui-gen, and returns it for use with
// DB.Load. The file format is a flat JSON object: {"F0272D": "Netgear", ...}.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("oui: opening %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("oui: %s is not gzip-compressed: %w", path, err)
	}
	defer gz.Close()

	var entries map[string]string
	if err := json.NewDecoder(gz).Decode(&entries); err != nil {
		return nil, fmt.Errorf("oui: decoding %s: %w", path, err)
	}
	return entries, nil
}

// SaveFile writes entries as a gzip-compressed JSON snapshot, overwriting
// any existing file at path.
func SaveFile(path string, entries map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("oui: creating %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(entries); err != nil {
		gz.Close()
		return fmt.Errorf("oui: encoding entries: %w", err)
	}
	return gz.Close()
}
