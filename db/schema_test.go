// ABOUTME: Tests for database schema creation
// ABOUTME: Uses in-memory SQLite for fast isolated tests
package db

import (
	"testing"
)

func TestInitSchema(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{
		"pipelines", "stages", "contacts", "tags", "contact_tags", "deals",
		"sequences", "enrollments", "email_accounts", "email_log", "objects",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	indexes := []string{
		"idx_pipelines_single_default",
		"idx_stages_pipeline",
		"idx_deals_pipeline",
		"idx_objects_owner",
	}
	for _, idx := range indexes {
		var indexName string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&indexName)
		if err != nil {
			t.Errorf("Index %s not found: %v", idx, err)
		}
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := InitSchema(db); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}
