package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"netwatch.dev/netwatch/internal/scan"
	"netwatch.dev/netwatch/internal/store"
)

// backend polls a running daemon's read-only API. It holds no state beyond
// the base URL and an http.Client tuned for short, local-loopback requests.
type backend struct {
	baseURL string
	client  *http.Client
}

func newBackend(port int) *backend {
	return &backend{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (b *backend) getJSON(path string, dest any) error {
	resp, err := b.client.Get(b.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (b *backend) Endpoints() ([]store.EndpointRow, error) {
	var rows []store.EndpointRow
	if err := b.getJSON("/api/endpoints/table", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (b *backend) ScanStatus() (scan.Snapshot, error) {
	var snap scan.Snapshot
	if err := b.getJSON("/api/scan/status", &snap); err != nil {
		return scan.Snapshot{}, err
	}
	return snap, nil
}
