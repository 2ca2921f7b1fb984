// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SourceTable identifies one allow-listed host CMS table whose content column
// is scanned and tagged. Identifiers are interpolated into SQL, so they are
// validated against a strict charset rather than bound as parameters.
type SourceTable struct {
	Table         string // host table name, e.g. "course_sections"
	IDColumn      string // row primary key column
	ScopeColumn   string // column holding the owning scope id
	ContentColumn string // text column to scan
	IsHTML        bool   // field-level classification, never sniffed from content
}

// Validate checks all identifiers against the allowed charset.
func (s SourceTable) Validate() error {
	for _, ident := range []string{s.Table, s.IDColumn, s.ScopeColumn, s.ContentColumn} {
		if !isValidIdentifier(ident) {
			return fmt.Errorf("invalid source identifier %q", ident)
		}
	}
	return nil
}

func (s SourceTable) String() string {
	return s.Table + "." + s.ContentColumn
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// SourceRow is one scanned row of a host content table.
type SourceRow struct {
	ID      int64
	ScopeID int64
	Content string
}

// ListSourceRows reads one page of a host content table, ordered by id.
// NULL content is returned as the empty string.
func (q *Queries) ListSourceRows(ctx context.Context, src SourceTable, limit, offset int64) ([]SourceRow, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s, %s, COALESCE(%s, '') FROM %s ORDER BY %s LIMIT ? OFFSET ?`,
		src.IDColumn, src.ScopeColumn, src.ContentColumn, src.Table, src.IDColumn)

	rows, err := q.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing rows of %s: %w", src, err)
	}
	defer func() { _ = rows.Close() }()

	var result []SourceRow
	for rows.Next() {
		var r SourceRow
		if err := rows.Scan(&r.ID, &r.ScopeID, &r.Content); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// UpdateSourceContent writes marked content back to the host table.
// Returns sql.ErrNoRows if the row vanished between scan and write-back;
// callers treat that as a silent skip.
func (q *Queries) UpdateSourceContent(ctx context.Context, src SourceTable, rowID int64, content string) error {
	if err := src.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`,
		src.Table, src.ContentColumn, src.IDColumn)

	res, err := q.db.ExecContext(ctx, query, content, rowID)
	if err != nil {
		return fmt.Errorf("updating %s row %d: %w", src, rowID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
