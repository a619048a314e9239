package store

const schema = `
CREATE TABLE IF NOT EXISTS endpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	custom_name TEXT,
	device_type TEXT NOT NULL DEFAULT 'other',
	custom_device_type TEXT,
	device_vendor TEXT,
	custom_vendor TEXT,
	device_model TEXT,
	custom_model TEXT,
	first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS endpoint_attributes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint_id INTEGER NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
	mac TEXT,
	ip TEXT,
	hostname TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(endpoint_id, ip, hostname)
);

CREATE TABLE IF NOT EXISTS communications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	src_endpoint_id INTEGER REFERENCES endpoints(id) ON DELETE SET NULL,
	dst_endpoint_id INTEGER REFERENCES endpoints(id) ON DELETE SET NULL,
	protocol TEXT NOT NULL,
	src_port INTEGER NOT NULL DEFAULT 0,
	dst_port INTEGER NOT NULL DEFAULT 0,
	packet_count INTEGER NOT NULL DEFAULT 0,
	bytes INTEGER NOT NULL DEFAULT 0,
	first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(src_endpoint_id, dst_endpoint_id, protocol, src_port, dst_port)
);

CREATE TABLE IF NOT EXISTS mdns_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ip TEXT NOT NULL,
	hostname TEXT,
	services TEXT
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_started_at DATETIME NOT NULL,
	phase TEXT NOT NULL,
	ip TEXT,
	mac TEXT,
	detail TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_endpoints_name ON endpoints(name);
CREATE INDEX IF NOT EXISTS idx_endpoints_name_lower ON endpoints(name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_attrs_mac ON endpoint_attributes(mac);
CREATE INDEX IF NOT EXISTS idx_attrs_ip ON endpoint_attributes(ip);
CREATE INDEX IF NOT EXISTS idx_attrs_endpoint ON endpoint_attributes(endpoint_id);
CREATE INDEX IF NOT EXISTS idx_comm_last_seen_src ON communications(last_seen_at, src_endpoint_id);
CREATE INDEX IF NOT EXISTS idx_comm_last_seen_dst ON communications(last_seen_at, dst_endpoint_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_comm_key ON communications(src_endpoint_id, dst_endpoint_id, protocol, src_port, dst_port);
`

// migrations lists forward-only, idempotent schema adjustments applied
// after the base schema. Each is a best-effort ALTER TABLE; the "duplicate
// column" error SQLite returns when a column already exists is swallowed.
var migrations = []string{
	`ALTER TABLE endpoints ADD COLUMN online INTEGER NOT NULL DEFAULT 0`,
}

func (e *Engine) initSchema() error {
	if _, err := e.writeConn.Exec(schema); err != nil {
		return err
	}
	for _, m := range migrations {
		e.writeConn.Exec(m) // ignore "duplicate column" on repeated runs
	}
	return nil
}
