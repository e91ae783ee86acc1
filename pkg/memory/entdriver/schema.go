package entdriver

// schema is applied on open. Statements are idempotent and portable across
// SQLite and PostgreSQL; timestamps are stored as unix nanoseconds and list
// columns as JSON text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		evidence TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		conversation_id TEXT NOT NULL DEFAULT '',
		embedding TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS claims_status_idx ON claims (status)`,
	`CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		due_window TEXT NOT NULL,
		source TEXT NOT NULL,
		reminder BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL,
		conversation_id TEXT NOT NULL DEFAULT '',
		evidence TEXT NOT NULL DEFAULT '[]',
		embedding TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS review_items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		claim_ids TEXT NOT NULL DEFAULT '[]',
		action_ids TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		resolution TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_claims (
		conversation_id TEXT NOT NULL,
		claim_id TEXT NOT NULL,
		linked_at BIGINT NOT NULL,
		PRIMARY KEY (conversation_id, claim_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_actions (
		conversation_id TEXT NOT NULL,
		action_id TEXT NOT NULL,
		linked_at BIGINT NOT NULL,
		PRIMARY KEY (conversation_id, action_id)
	)`,
}
