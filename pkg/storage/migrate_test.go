package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateAppliesPendingOnly(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	first := []Migration{
		{Version: 1, Description: "create widgets", SQL: "CREATE TABLE widgets (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)"},
	}
	if err := Migrate(ctx, db, "widgets", first); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// Re-running with an extra migration applies only the new one.
	second := append(first, Migration{
		Version: 2, Description: "add color", SQL: "ALTER TABLE widgets ADD COLUMN color TEXT",
	})
	if err := Migrate(ctx, db, "widgets", second); err != nil {
		t.Fatalf("Migrate with pending migration failed: %v", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE component = 'widgets'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 applied migrations, got %d", count)
	}

	if _, err := db.Exec("INSERT INTO widgets (name, color) VALUES ('a', 'red')"); err != nil {
		t.Errorf("Expected migrated schema to accept inserts: %v", err)
	}
}

func TestMigrateComponentsTrackedIndependently(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	a := []Migration{{Version: 1, Description: "create a", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"}}
	b := []Migration{{Version: 1, Description: "create b", SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY)"}}

	if err := Migrate(ctx, db, "a", a); err != nil {
		t.Fatalf("Migrate component a failed: %v", err)
	}
	if err := Migrate(ctx, db, "b", b); err != nil {
		t.Fatalf("Migrate component b failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows across components, got %d", count)
	}
}

func TestMigrateBadSQLRollsBack(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	bad := []Migration{{Version: 1, Description: "broken", SQL: "CREATE TABEL nope"}}
	if err := Migrate(ctx, db, "bad", bad); err == nil {
		t.Fatal("Expected error for invalid migration SQL")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE component = 'bad'").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected failed migration not to be recorded, got %d rows", count)
	}
}
