package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"netwatch.dev/netwatch/internal/errs"
	"netwatch.dev/netwatch/internal/flowtable"
)

// UpsertCommunication records or increments a flow row keyed by the
// endpoint pair, protocol, and port pair. row.PacketCount/row.Bytes are
// deltas since the last flush (see flowtable.Row), so they're added onto
// the stored lifetime totals rather than replacing them; timestamps widen.
func (e *Engine) UpsertCommunication(ctx context.Context, row flowtable.Row) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx, `
		INSERT INTO communications
			(src_endpoint_id, dst_endpoint_id, protocol, src_port, dst_port,
			 packet_count, bytes, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(src_endpoint_id, dst_endpoint_id, protocol, src_port, dst_port) DO UPDATE SET
			packet_count = packet_count + excluded.packet_count,
			bytes = bytes + excluded.bytes,
			last_seen_at = excluded.last_seen_at`,
		row.Key.SrcEndpointID, row.Key.DstEndpointID, row.Key.Protocol, row.Key.SrcPort, row.Key.DstPort,
		row.PacketCount, row.Bytes, row.FirstSeenAt, row.LastSeenAt)
	return wrapWriteErr(err)
}

// FlushRows applies a batch of flowtable rows in one transaction. Called
// periodically by the writer with the set returned from Table.FlushDirty.
func (e *Engine) FlushRows(ctx context.Context, rows []flowtable.Row) error {
	if len(rows) == 0 {
		return nil
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.writeConn.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteErr(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO communications
			(src_endpoint_id, dst_endpoint_id, protocol, src_port, dst_port,
			 packet_count, bytes, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(src_endpoint_id, dst_endpoint_id, protocol, src_port, dst_port) DO UPDATE SET
			packet_count = packet_count + excluded.packet_count,
			bytes = bytes + excluded.bytes,
			last_seen_at = excluded.last_seen_at`)
	if err != nil {
		return wrapWriteErr(err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Key.SrcEndpointID, row.Key.DstEndpointID, row.Key.Protocol, row.Key.SrcPort, row.Key.DstPort,
			row.PacketCount, row.Bytes, row.FirstSeenAt, row.LastSeenAt); err != nil {
			return wrapWriteErr(err)
		}
	}
	return wrapWriteErr(tx.Commit())
}

// RecordMDNS appends an mDNS announcement sighting.
func (e *Engine) RecordMDNS(ctx context.Context, ip, hostname string, services []string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx,
		`INSERT INTO mdns_entries (ip, hostname, services) VALUES (?, ?, ?)`,
		ip, nullIfEmpty(hostname), joinServices(services))
	return wrapWriteErr(err)
}

func joinServices(services []string) string {
	out := ""
	for i, s := range services {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// PruneMDNS keeps only the most recent maxRows entries, oldest first.
func (e *Engine) PruneMDNS(ctx context.Context, maxRows int) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx, `
		DELETE FROM mdns_entries WHERE id NOT IN (
			SELECT id FROM mdns_entries ORDER BY timestamp DESC LIMIT ?
		)`, maxRows)
	return wrapWriteErr(err)
}

// GetSetting returns the stored value for key, or ok=false if unset.
func (e *Engine) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := e.readPool.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Join(errs.ErrDbFatal, err)
	}
	return value, true, nil
}

// ApplySetting upserts a single key/value setting.
func (e *Engine) ApplySetting(ctx context.Context, key, value string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return wrapWriteErr(err)
}

// RecordScanResult appends one discovery row from an active scan phase.
func (e *Engine) RecordScanResult(ctx context.Context, scanStartedAt time.Time, phase, ip, mac, detail string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx, `
		INSERT INTO scan_results (scan_started_at, phase, ip, mac, detail)
		VALUES (?, ?, ?, ?, ?)`, scanStartedAt, phase, nullIfEmpty(ip), nullIfEmpty(mac), nullIfEmpty(detail))
	return wrapWriteErr(err)
}

// maxMDNSEntries bounds mdns_entries as a circular buffer: Cleanup prunes
// back down to this many rows, newest first, every run.
const maxMDNSEntries = 10_000

// MergeSweeper runs the periodic identity-merge passes Cleanup drives:
// folding duplicate endpoints created by IPv6 privacy-address churn or by
// MAC reuse back into one. internal/identity.Resolver implements this;
// storage only needs to call it.
type MergeSweeper interface {
	MergeIPv6PrefixSweep(ctx context.Context) error
	MergeDuplicateMACsSweep(ctx context.Context) error
}

// Cleanup deletes communications and scan results older than retentionDays,
// runs the IPv6-prefix and duplicate-MAC merge sweeps, prunes mdns_entries
// back to its circular bound, and reclaims space with VACUUM. Called on a
// tick by the caller (see config.CleanupIntervalSeconds).
func (e *Engine) Cleanup(ctx context.Context, retentionDays int, sweeper MergeSweeper) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	if err := e.deleteExpired(ctx, cutoff); err != nil {
		return err
	}

	if sweeper != nil {
		if err := sweeper.MergeIPv6PrefixSweep(ctx); err != nil {
			e.logger.Warn("ipv6 prefix merge sweep failed", "error", err)
		}
		if err := sweeper.MergeDuplicateMACsSweep(ctx); err != nil {
			e.logger.Warn("mac duplicate merge sweep failed", "error", err)
		}
	}

	if err := e.PruneMDNS(ctx, maxMDNSEntries); err != nil {
		e.logger.Warn("mdns prune failed", "error", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if _, err := e.writeConn.ExecContext(ctx, `VACUUM`); err != nil {
		e.logger.Warn("vacuum after retention cleanup failed", "error", err)
	}
	return nil
}

// deleteExpired removes communications/scan_results past retention in one
// transaction.
func (e *Engine) deleteExpired(ctx context.Context, cutoff time.Time) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.writeConn.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM communications WHERE last_seen_at < ?`, cutoff); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_results WHERE created_at < ?`, cutoff); err != nil {
		return wrapWriteErr(err)
	}
	return wrapWriteErr(tx.Commit())
}
