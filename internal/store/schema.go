package store

// schema defines all application tables.
const schema = `
CREATE TABLE IF NOT EXISTS wadigest_senders (
	jid        TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS wadigest_groups (
	jid                  TEXT PRIMARY KEY,
	name                 TEXT,
	topic                TEXT,
	owner_jid            TEXT,
	managed              INTEGER NOT NULL DEFAULT 0,
	community_keys       TEXT,
	forward_url          TEXT,
	send_summary_to_self INTEGER NOT NULL DEFAULT 0,
	notify_on_spam       INTEGER NOT NULL DEFAULT 0,
	last_summary_sync    INTEGER NOT NULL,
	last_ingest          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS wadigest_messages (
	id         TEXT PRIMARY KEY,
	chat_jid   TEXT NOT NULL,
	sender_jid TEXT NOT NULL,
	text       TEXT,
	timestamp  INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wadigest_messages_chat_ts
	ON wadigest_messages (chat_jid, timestamp);
`
