// Package store persists endpoints, their attributes, and observed
// communications to an embedded SQLite database. All writes funnel through
// a single writer connection; reads use a separate pooled connection so
// query-heavy API handlers never block on write-lock contention.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"netwatch.dev/netwatch/internal/errs"
	"netwatch.dev/netwatch/internal/identity"
	"netwatch.dev/netwatch/internal/logging"
)

// Engine is the storage backend. It satisfies identity.Store.
type Engine struct {
	writeConn *sql.DB // single connection, serialized by writeMu
	writeMu   sync.Mutex
	readPool  *sql.DB // pooled, read-only workload
	logger    *logging.Logger
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, logger *logging.Logger) (*Engine, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		// Each connection to a plain ":memory:" database gets its own empty
		// database; a uniquely named shared-cache one lets the writer and
		// the read pool see the same tables.
		dsn = fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", time.Now().UnixNano())
	}

	writeConn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	writeConn.SetMaxOpenConns(1)

	readPool, err := sql.Open("sqlite", dsn)
	if err != nil {
		writeConn.Close()
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	readPool.SetMaxOpenConns(4)

	e := &Engine{writeConn: writeConn, readPool: readPool, logger: logger}
	if err := e.initSchema(); err != nil {
		writeConn.Close()
		readPool.Close()
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	return e, nil
}

// Close releases both underlying connections.
func (e *Engine) Close() error {
	werr := e.writeConn.Close()
	rerr := e.readPool.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "locked") || strings.Contains(s, "busy")
}

func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if isBusyErr(err) {
		return errors.Join(errs.ErrDbBusy, err)
	}
	return errors.Join(errs.ErrDbFatal, err)
}

var _ identity.Store = (*Engine)(nil)

func scanEndpoint(row interface{ Scan(...any) error }) (*identity.Endpoint, error) {
	var ep identity.Endpoint
	var customName sql.NullString
	if err := row.Scan(&ep.ID, &ep.Name, &customName); err != nil {
		return nil, err
	}
	ep.CustomName = customName.String
	return &ep, nil
}

// FindEndpointByMAC implements identity.Store.
func (e *Engine) FindEndpointByMAC(ctx context.Context, mac string) (*identity.Endpoint, bool, error) {
	row := e.readPool.QueryRowContext(ctx, `
		SELECT e.id, e.name, e.custom_name FROM endpoints e
		JOIN endpoint_attributes a ON a.endpoint_id = e.id
		WHERE a.mac = ? ORDER BY a.created_at DESC LIMIT 1`, mac)
	ep, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(errs.ErrDbFatal, err)
	}
	return ep, true, nil
}

// FindEndpointByHostname implements identity.Store.
func (e *Engine) FindEndpointByHostname(ctx context.Context, hostname string) (*identity.Endpoint, bool, error) {
	row := e.readPool.QueryRowContext(ctx, `
		SELECT e.id, e.name, e.custom_name FROM endpoints e
		JOIN endpoint_attributes a ON a.endpoint_id = e.id
		WHERE LOWER(a.hostname) = LOWER(?) ORDER BY a.created_at DESC LIMIT 1`, hostname)
	ep, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(errs.ErrDbFatal, err)
	}
	return ep, true, nil
}

// FindEndpointByIP implements identity.Store. It also returns the MAC
// address recorded on the most recent attribute row for that IP, so the
// resolver can detect DHCP lease reuse across different devices.
func (e *Engine) FindEndpointByIP(ctx context.Context, ip string) (*identity.Endpoint, string, bool, error) {
	row := e.readPool.QueryRowContext(ctx, `
		SELECT e.id, e.name, e.custom_name, a.mac FROM endpoints e
		JOIN endpoint_attributes a ON a.endpoint_id = e.id
		WHERE a.ip = ? ORDER BY a.created_at DESC LIMIT 1`, ip)

	var id int64
	var name string
	var customName, lastMAC sql.NullString
	err := row.Scan(&id, &name, &customName, &lastMAC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, errors.Join(errs.ErrDbFatal, err)
	}
	ep := &identity.Endpoint{ID: id, Name: name, CustomName: customName.String}
	return ep, lastMAC.String, true, nil
}

// CreateEndpoint implements identity.Store.
func (e *Engine) CreateEndpoint(ctx context.Context, name string) (int64, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	res, err := e.writeConn.ExecContext(ctx,
		`INSERT INTO endpoints (name, first_seen_at, last_seen_at) VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, name)
	if err != nil {
		return 0, wrapWriteErr(err)
	}
	return res.LastInsertId()
}

// UpsertAttribute implements identity.Store.
func (e *Engine) UpsertAttribute(ctx context.Context, endpointID int64, attr identity.Attribute) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx, `
		INSERT INTO endpoint_attributes (endpoint_id, mac, ip, hostname)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint_id, ip, hostname) DO UPDATE SET
			mac = excluded.mac`,
		endpointID, nullIfEmpty(attr.MAC), nullIfEmpty(attr.IP), nullIfEmpty(attr.Hostname))
	if err != nil {
		return wrapWriteErr(err)
	}

	_, err = e.writeConn.ExecContext(ctx,
		`UPDATE endpoints SET last_seen_at = CURRENT_TIMESTAMP WHERE id = ?`, endpointID)
	return wrapWriteErr(err)
}

// RenameIfAuto implements identity.Store.
func (e *Engine) RenameIfAuto(ctx context.Context, endpointID int64, name string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, err := e.writeConn.ExecContext(ctx,
		`UPDATE endpoints SET name = ? WHERE id = ? AND (custom_name IS NULL OR custom_name = '')`,
		name, endpointID)
	return wrapWriteErr(err)
}

// MergeEndpoints implements identity.Store. Attribute and communication
// rows pointing at loser are rewritten to survivor inside one transaction;
// a loser row that would duplicate an existing survivor row is deleted
// instead. Then the loser endpoint is deleted.
func (e *Engine) MergeEndpoints(ctx context.Context, survivor, loser int64) error {
	if survivor == loser {
		return nil
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.writeConn.BeginTx(ctx, nil)
	if err != nil {
		return wrapWriteErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE OR IGNORE endpoint_attributes SET endpoint_id = ? WHERE endpoint_id = ?`, survivor, loser); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM endpoint_attributes WHERE endpoint_id = ?`, loser); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE OR IGNORE communications SET src_endpoint_id = ? WHERE src_endpoint_id = ?`, survivor, loser); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE OR IGNORE communications SET dst_endpoint_id = ? WHERE dst_endpoint_id = ?`, survivor, loser); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM communications WHERE src_endpoint_id = ? OR dst_endpoint_id = ?`, loser, loser); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM endpoints WHERE id = ?`, loser); err != nil {
		return wrapWriteErr(err)
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteErr(err)
	}
	return nil
}

// FindEndpointsBySoleIPv6Prefix implements identity.Store. It returns
// endpoints whose ONLY recorded address is an IPv6 address under prefix,
// so the caller can fold per-privacy-address duplicates of one physical
// host back into a single endpoint.
func (e *Engine) FindEndpointsBySoleIPv6Prefix(ctx context.Context, prefix string) ([]identity.Endpoint, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT e.id, e.name, e.custom_name FROM endpoints e
		WHERE e.id IN (
			SELECT endpoint_id FROM endpoint_attributes WHERE ip LIKE ? || '%'
		) AND e.id NOT IN (
			SELECT endpoint_id FROM endpoint_attributes WHERE ip NOT LIKE ? || '%' AND ip IS NOT NULL AND ip != ''
		)`, prefix, prefix)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []identity.Endpoint
	for rows.Next() {
		var ep identity.Endpoint
		var customName sql.NullString
		if err := rows.Scan(&ep.ID, &ep.Name, &customName); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		ep.CustomName = customName.String
		out = append(out, ep)
	}
	return out, rows.Err()
}

// ListSoleIPv6Addresses implements identity.Store. It returns one IPv6
// address per endpoint whose only recorded address family is IPv6, for
// the periodic /64 merge sweep.
func (e *Engine) ListSoleIPv6Addresses(ctx context.Context) ([]string, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT DISTINCT ip FROM endpoint_attributes
		WHERE ip LIKE '%:%'
		AND endpoint_id NOT IN (
			SELECT endpoint_id FROM endpoint_attributes
			WHERE ip IS NOT NULL AND ip != '' AND ip NOT LIKE '%:%'
		)`)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		out = append(out, ip)
	}
	return out, rows.Err()
}

// FindEndpointsByMAC implements identity.Store. Unlike FindEndpointByMAC
// (most recent match only, used at resolution time), this returns every
// endpoint that has ever recorded an attribute with mac, for the periodic
// duplicate-MAC merge sweep.
func (e *Engine) FindEndpointsByMAC(ctx context.Context, mac string) ([]identity.Endpoint, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT DISTINCT e.id, e.name, e.custom_name FROM endpoints e
		JOIN endpoint_attributes a ON a.endpoint_id = e.id
		WHERE a.mac = ?`, mac)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []identity.Endpoint
	for rows.Next() {
		var ep identity.Endpoint
		var customName sql.NullString
		if err := rows.Scan(&ep.ID, &ep.Name, &customName); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		ep.CustomName = customName.String
		out = append(out, ep)
	}
	return out, rows.Err()
}

// ListDuplicateMACs implements identity.Store. It returns every MAC
// address attached to more than one endpoint, for the periodic
// duplicate-MAC merge sweep.
func (e *Engine) ListDuplicateMACs(ctx context.Context) ([]string, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT mac FROM endpoint_attributes
		WHERE mac IS NOT NULL AND mac != ''
		GROUP BY mac
		HAVING COUNT(DISTINCT endpoint_id) > 1`)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var mac string
		if err := rows.Scan(&mac); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		out = append(out, mac)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
