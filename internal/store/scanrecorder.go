package store

import (
	"context"
	"time"

	"netwatch.dev/netwatch/internal/identity"
	"netwatch.dev/netwatch/internal/scan"
)

// ScanRecorder adapts Engine plus an identity.Resolver into scan.Recorder:
// every discovery finding both gets appended to scan_results for audit and
// is folded into the endpoint table through the same resolution path
// passive observations use.
type ScanRecorder struct {
	engine   *Engine
	resolver *identity.Resolver
}

// NewScanRecorder builds a scan.Recorder backed by engine and resolver.
func NewScanRecorder(engine *Engine, resolver *identity.Resolver) *ScanRecorder {
	return &ScanRecorder{engine: engine, resolver: resolver}
}

var _ scan.Recorder = (*ScanRecorder)(nil)

// RecordFinding implements scan.Recorder.
func (s *ScanRecorder) RecordFinding(ctx context.Context, started time.Time, f scan.Finding) error {
	if err := s.engine.RecordScanResult(ctx, started, string(f.Phase), f.IP, f.MAC, f.Detail); err != nil {
		return err
	}
	if f.IP == "" && f.MAC == "" {
		return nil
	}
	id, err := s.resolver.Resolve(ctx, identity.Observation{
		MAC:       f.MAC,
		IP:        f.IP,
		Timestamp: f.AtTime,
	})
	if err != nil {
		return err
	}
	return s.engine.SetOnline(ctx, id, true)
}
