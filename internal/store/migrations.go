package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "messages: raw direct messages between users",
		SQL: `
CREATE TABLE messages (
    id           INTEGER PRIMARY KEY,
    sender_id    INTEGER NOT NULL,
    receiver_id  INTEGER NOT NULL,
    body         TEXT NOT NULL,
    sent_at      INTEGER NOT NULL,
    import_batch TEXT
);

CREATE INDEX idx_messages_pair ON messages(sender_id, receiver_id, sent_at);
CREATE INDEX idx_messages_sent ON messages(sent_at DESC);
`,
	},
	{
		Version:     2,
		Description: "conversation_summaries: cached feature vectors per user pair",
		SQL: `
CREATE TABLE conversation_summaries (
    id              INTEGER PRIMARY KEY,
    pair_key        TEXT NOT NULL UNIQUE,
    user_a_id       INTEGER NOT NULL,
    user_b_id       INTEGER NOT NULL,
    features        TEXT NOT NULL,
    label           TEXT NOT NULL,
    confidence      INTEGER NOT NULL CHECK (confidence BETWEEN 0 AND 100),
    source          TEXT NOT NULL,
    last_message_at INTEGER NOT NULL,
    message_count   INTEGER NOT NULL,
    revision        INTEGER NOT NULL DEFAULT 1,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE INDEX idx_summaries_users     ON conversation_summaries(user_a_id, user_b_id);
CREATE INDEX idx_summaries_last_msg  ON conversation_summaries(last_message_at);
`,
	},
	{
		Version:     3,
		Description: "sessions: externally issued session identifiers",
		SQL: `
CREATE TABLE sessions (
    id          INTEGER PRIMARY KEY,
    session_id  TEXT NOT NULL UNIQUE,
    user_id     INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,
    expires_at  INTEGER
);

CREATE INDEX idx_sessions_user ON sessions(user_id);
`,
	},
	{
		Version:     4,
		Description: "inference_runs: audit trail of non-cached inferences",
		SQL: `
CREATE TABLE inference_runs (
    id            INTEGER PRIMARY KEY,
    run_id        TEXT NOT NULL,
    pair_key      TEXT NOT NULL,
    label         TEXT NOT NULL,
    confidence    INTEGER NOT NULL,
    source        TEXT NOT NULL,
    reason        TEXT,
    message_count INTEGER NOT NULL,
    created_at    INTEGER NOT NULL
);

CREATE INDEX idx_runs_pair    ON inference_runs(pair_key, created_at DESC);
CREATE INDEX idx_runs_run_id  ON inference_runs(run_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
