package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                 TEXT PRIMARY KEY,
	type               TEXT NOT NULL DEFAULT 'general',
	title              TEXT NOT NULL,
	message            TEXT NOT NULL DEFAULT '',
	recipient_id       TEXT NOT NULL,
	recipient_group_id TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'unread'
		CHECK(status IN ('unread', 'read', 'acknowledged')),
	priority           TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'urgent')),
	created_at         TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	read_at            TEXT,
	acknowledged_at    TEXT,
	action_data        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient_id ON notifications(recipient_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_recipient_status
	ON notifications(recipient_id, status);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
