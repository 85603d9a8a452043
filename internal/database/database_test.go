package database

import (
	"context"
	"testing"
)

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"auth_tokens", "quotes", "limbo_quotes", "quote_ratings", "backups"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	v, err := SchemaVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 2 {
		t.Errorf("schema version = %d, want 2", v)
	}
}

func TestOpenFileDatabase(t *testing.T) {
	path := t.TempDir() + "/quoteboard.db"

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.Close()

	// second open must find migrations already applied
	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestDSN(t *testing.T) {
	if got := dsn(Memory); got != Memory {
		t.Errorf("dsn(memory) = %q", got)
	}
	want := "q.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if got := dsn("q.db"); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
