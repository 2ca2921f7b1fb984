// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the lingotag project.
package testutil

import (
	"database/sql"
	"log/slog"
	"os"
	"testing"

	"github.com/lingotag/lingotag/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "lingotag-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

// SeedHostTable creates a host-style content table and returns its source
// descriptor. Rows are inserted as (id, scopeID, content) triples.
func SeedHostTable(t *testing.T, db *sql.DB, table string, html bool, rows [][3]any) store.SourceTable {
	t.Helper()

	_, err := db.Exec(`CREATE TABLE ` + table + ` (
		id INTEGER PRIMARY KEY,
		course_id INTEGER NOT NULL,
		content TEXT)`)
	if err != nil {
		t.Fatalf("creating host table %s: %v", table, err)
	}

	for _, row := range rows {
		_, err := db.Exec(`INSERT INTO `+table+` (id, course_id, content) VALUES (?, ?, ?)`,
			row[0], row[1], row[2])
		if err != nil {
			t.Fatalf("seeding host table %s: %v", table, err)
		}
	}

	return store.SourceTable{
		Table:         table,
		IDColumn:      "id",
		ScopeColumn:   "course_id",
		ContentColumn: "content",
		IsHTML:        html,
	}
}
