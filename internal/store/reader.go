package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"netwatch.dev/netwatch/internal/errs"
)

// EndpointRow is one row of the endpoints table listing.
type EndpointRow struct {
	ID           int64
	Name         string
	CustomName   string
	DeviceType   string
	Vendor       string
	Model        string
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
	Online       bool
}

// ListEndpoints returns every known endpoint, most recently seen first.
func (e *Engine) ListEndpoints(ctx context.Context) ([]EndpointRow, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT id, name, COALESCE(custom_name, ''), device_type,
			COALESCE(custom_vendor, device_vendor, ''), COALESCE(custom_model, device_model, ''),
			first_seen_at, last_seen_at, online
		FROM endpoints ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []EndpointRow
	for rows.Next() {
		var r EndpointRow
		var online int
		if err := rows.Scan(&r.ID, &r.Name, &r.CustomName, &r.DeviceType, &r.Vendor, &r.Model,
			&r.FirstSeenAt, &r.LastSeenAt, &online); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		r.Online = online != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// EndpointDetail bundles one endpoint with its attribute history.
type EndpointDetail struct {
	EndpointRow
	Attributes []AttributeRow
}

// AttributeRow is one sighting of a MAC/IP/hostname tuple.
type AttributeRow struct {
	MAC       string
	IP        string
	Hostname  string
	CreatedAt time.Time
}

// ErrEndpointNotFound is returned by GetEndpointDetail for an unknown id.
var ErrEndpointNotFound = errors.New("store: endpoint not found")

// GetEndpointDetail returns an endpoint and its full attribute history.
func (e *Engine) GetEndpointDetail(ctx context.Context, id int64) (*EndpointDetail, error) {
	var d EndpointDetail
	var online int
	err := e.readPool.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(custom_name, ''), device_type,
			COALESCE(custom_vendor, device_vendor, ''), COALESCE(custom_model, device_model, ''),
			first_seen_at, last_seen_at, online
		FROM endpoints WHERE id = ?`, id).Scan(
		&d.ID, &d.Name, &d.CustomName, &d.DeviceType, &d.Vendor, &d.Model,
		&d.FirstSeenAt, &d.LastSeenAt, &online)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEndpointNotFound
	}
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	d.Online = online != 0

	rows, err := e.readPool.QueryContext(ctx, `
		SELECT COALESCE(mac,''), COALESCE(ip,''), COALESCE(hostname,''), created_at
		FROM endpoint_attributes WHERE endpoint_id = ? ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a AttributeRow
		if err := rows.Scan(&a.MAC, &a.IP, &a.Hostname, &a.CreatedAt); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		d.Attributes = append(d.Attributes, a)
	}
	return &d, rows.Err()
}

// SetClassification persists a manual device-type override.
func (e *Engine) SetClassification(ctx context.Context, id int64, deviceType string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.writeConn.ExecContext(ctx,
		`UPDATE endpoints SET custom_device_type = ?, device_type = ? WHERE id = ?`, deviceType, deviceType, id)
	return wrapWriteErr(err)
}

// SetAutoDeviceType records a classifier-derived device type, leaving any
// manual override (custom_device_type) in place.
func (e *Engine) SetAutoDeviceType(ctx context.Context, id int64, deviceType string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.writeConn.ExecContext(ctx,
		`UPDATE endpoints SET device_type = ? WHERE id = ? AND custom_device_type IS NULL`, deviceType, id)
	return wrapWriteErr(err)
}

// SetVendorModel records classifier-derived vendor/model strings, leaving
// any manual override in place.
func (e *Engine) SetVendorModel(ctx context.Context, id int64, vendor, model string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.writeConn.ExecContext(ctx,
		`UPDATE endpoints SET device_vendor = ?, device_model = ? WHERE id = ?`, nullIfEmpty(vendor), nullIfEmpty(model), id)
	return wrapWriteErr(err)
}

// SetCustomName persists a manual display name; empty clears the override.
func (e *Engine) SetCustomName(ctx context.Context, id int64, name string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	var err error
	if name == "" {
		_, err = e.writeConn.ExecContext(ctx, `UPDATE endpoints SET custom_name = NULL WHERE id = ?`, id)
	} else {
		_, err = e.writeConn.ExecContext(ctx,
			`UPDATE endpoints SET custom_name = ?, name = ? WHERE id = ?`, name, name, id)
	}
	return wrapWriteErr(err)
}

// SetCustomVendor persists a manual vendor override.
func (e *Engine) SetCustomVendor(ctx context.Context, id int64, vendor string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.writeConn.ExecContext(ctx, `UPDATE endpoints SET custom_vendor = ? WHERE id = ?`, nullIfEmpty(vendor), id)
	return wrapWriteErr(err)
}

// SetCustomModel persists a manual model override.
func (e *Engine) SetCustomModel(ctx context.Context, id int64, model string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.writeConn.ExecContext(ctx, `UPDATE endpoints SET custom_model = ? WHERE id = ?`, nullIfEmpty(model), id)
	return wrapWriteErr(err)
}

// DeleteEndpoint removes an endpoint. Attributes cascade by foreign key;
// communications referencing it are set to NULL, not deleted, so aggregate
// traffic totals involving the other party in the conversation survive.
func (e *Engine) DeleteEndpoint(ctx context.Context, id int64) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	_, err := e.writeConn.ExecContext(ctx, `DELETE FROM endpoints WHERE id = ?`, id)
	return wrapWriteErr(err)
}

// SetOnline updates the liveness flag set by the periodic scan/probe sweep.
func (e *Engine) SetOnline(ctx context.Context, id int64, online bool) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	v := 0
	if online {
		v = 1
	}
	_, err := e.writeConn.ExecContext(ctx, `UPDATE endpoints SET online = ? WHERE id = ?`, v, id)
	return wrapWriteErr(err)
}

// DNSEntry is one hostname resolution row for the dns-entries endpoint.
type DNSEntry struct {
	Hostname  string
	IP        string
	UpdatedAt time.Time
}

// ListDNSEntries returns up to 500 of the newest attribute rows that carry
// both a hostname and an IP, newest first, for the DNS activity view. An
// endpoint can appear more than once.
func (e *Engine) ListDNSEntries(ctx context.Context) ([]DNSEntry, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT hostname, ip, created_at FROM endpoint_attributes
		WHERE hostname IS NOT NULL AND hostname != '' AND ip IS NOT NULL AND ip != ''
		ORDER BY created_at DESC LIMIT 500`)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []DNSEntry
	for rows.Next() {
		var d DNSEntry
		if err := rows.Scan(&d.Hostname, &d.IP, &d.UpdatedAt); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ProtocolTotal is the aggregate traffic volume for one protocol tag.
type ProtocolTotal struct {
	Protocol    string
	PacketCount uint64
	Bytes       uint64
}

// ListProtocolTotals aggregates communications by protocol tag.
func (e *Engine) ListProtocolTotals(ctx context.Context) ([]ProtocolTotal, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT protocol, SUM(packet_count), SUM(bytes) FROM communications
		GROUP BY protocol ORDER BY SUM(bytes) DESC`)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []ProtocolTotal
	for rows.Next() {
		var p ProtocolTotal
		if err := rows.Scan(&p.Protocol, &p.PacketCount, &p.Bytes); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListEndpointsByProtocol returns distinct endpoint ids seen using protocol.
func (e *Engine) ListEndpointsByProtocol(ctx context.Context, protocol string) ([]int64, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT DISTINCT src_endpoint_id FROM communications WHERE protocol = ? AND src_endpoint_id IS NOT NULL
		UNION
		SELECT DISTINCT dst_endpoint_id FROM communications WHERE protocol = ? AND dst_endpoint_id IS NOT NULL`,
		protocol, protocol)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// InternetTotal is the aggregate bytes sent toward non-private destinations.
type InternetTotal struct {
	EndpointID int64
	Bytes      uint64
}

// ListInternetUsage sums bytes for communications whose destination
// endpoint is classified as internet, approximating internet egress per
// local endpoint.
func (e *Engine) ListInternetUsage(ctx context.Context) ([]InternetTotal, error) {
	rows, err := e.readPool.QueryContext(ctx, `
		SELECT c.src_endpoint_id, SUM(c.bytes) FROM communications c
		JOIN endpoints d ON d.id = c.dst_endpoint_id
		WHERE d.device_type = 'internet' AND c.src_endpoint_id IS NOT NULL
		GROUP BY c.src_endpoint_id ORDER BY SUM(c.bytes) DESC`)
	if err != nil {
		return nil, errors.Join(errs.ErrDbFatal, err)
	}
	defer rows.Close()

	var out []InternetTotal
	for rows.Next() {
		var t InternetTotal
		if err := rows.Scan(&t.EndpointID, &t.Bytes); err != nil {
			return nil, errors.Join(errs.ErrDbFatal, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
