// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for pipelines, stages, deals, contacts and outreach
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipelines (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_default INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pipelines_single_default ON pipelines(is_default) WHERE is_default = 1;

CREATE TABLE IF NOT EXISTS stages (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL,
	name TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL CHECK(position >= 0),
	probability INTEGER NOT NULL DEFAULT 0 CHECK(probability BETWEEN 0 AND 100),
	UNIQUE(pipeline_id, position),
	FOREIGN KEY (pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_stages_pipeline ON stages(pipeline_id);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'lead',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contact_tags (
	contact_id TEXT NOT NULL,
	tag_id TEXT NOT NULL,
	PRIMARY KEY (contact_id, tag_id),
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	value INTEGER NOT NULL DEFAULT 0 CHECK(value >= 0),
	currency TEXT NOT NULL DEFAULT 'USD',
	priority INTEGER NOT NULL DEFAULT 2 CHECK(priority IN (1, 2, 3)),
	pipeline_id TEXT NOT NULL,
	stage_id TEXT NOT NULL,
	contact_id TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE,
	FOREIGN KEY (stage_id) REFERENCES stages(id) ON DELETE CASCADE,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_pipeline ON deals(pipeline_id);
CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage_id);

CREATE TABLE IF NOT EXISTS sequences (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft', 'active', 'paused', 'archived')),
	step_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS enrollments (
	id TEXT PRIMARY KEY,
	sequence_id TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	deal_id TEXT,
	enrolled_at DATETIME NOT NULL,
	UNIQUE(sequence_id, contact_id),
	FOREIGN KEY (sequence_id) REFERENCES sequences(id) ON DELETE CASCADE,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS email_accounts (
	id TEXT PRIMARY KEY,
	address TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT 'smtp'
);

CREATE TABLE IF NOT EXISTS email_log (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	deal_id TEXT,
	subject TEXT NOT NULL DEFAULT '',
	sent_unix INTEGER NOT NULL,
	FOREIGN KEY (account_id) REFERENCES email_accounts(id) ON DELETE CASCADE,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_email_log_contact ON email_log(contact_id, account_id);

CREATE TABLE IF NOT EXISTS objects (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	owner_id TEXT NOT NULL DEFAULT '',
	metadata TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_objects_type ON objects(type);
CREATE INDEX IF NOT EXISTS idx_objects_owner ON objects(type, owner_id);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
