// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lingotag/lingotag/internal/model"
)

const translationColumns = `id, hash, lang, text, scope_kind, scope_id, is_human_edited, created_at, modified_at`

func scanTranslation(row interface{ Scan(...any) error }) (model.Translation, error) {
	var t model.Translation
	err := row.Scan(&t.ID, &t.Hash, &t.Lang, &t.Text, &t.ScopeKind, &t.ScopeID,
		&t.IsHumanEdited, &t.CreatedAt, &t.ModifiedAt)
	return t, err
}

// GetTranslation returns the translation for a (hash, lang) pair.
// Returns sql.ErrNoRows when the pair is not yet translated.
func (q *Queries) GetTranslation(ctx context.Context, hash, lang string) (model.Translation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+translationColumns+` FROM translations WHERE hash = ? AND lang = ?`,
		hash, lang)
	return scanTranslation(row)
}

// CreateTranslationParams holds the fields for creating a translation record.
type CreateTranslationParams struct {
	Hash      string
	Lang      string
	Text      string
	ScopeKind string
	ScopeID   int64
	CreatedAt time.Time
}

// CreateTranslation inserts a new translation record. A uniqueness violation
// on (hash, lang) is returned to the caller, which treats it as "already
// exists" and re-reads.
func (q *Queries) CreateTranslation(ctx context.Context, arg CreateTranslationParams) (model.Translation, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO translations (hash, lang, text, scope_kind, scope_id, is_human_edited, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		RETURNING `+translationColumns,
		arg.Hash, arg.Lang, arg.Text, arg.ScopeKind, arg.ScopeID, arg.CreatedAt, arg.CreatedAt)
	return scanTranslation(row)
}

// UpsertMachineTranslationParams holds the fields for a machine-written upsert.
type UpsertMachineTranslationParams struct {
	Hash       string
	Lang       string
	Text       string
	ScopeKind  string
	ScopeID    int64
	ModifiedAt time.Time
}

// UpsertMachineTranslation inserts or updates a translation on behalf of an
// automatic writer (fetch worker or base re-sync). The conflict clause makes
// concurrent upserts on the same (hash, lang) key serialize to last writer
// wins, while the is_human_edited guard ensures a human edit is never
// overwritten by a machine write.
func (q *Queries) UpsertMachineTranslation(ctx context.Context, arg UpsertMachineTranslationParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO translations (hash, lang, text, scope_kind, scope_id, is_human_edited, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (hash, lang) DO UPDATE SET
			text = excluded.text,
			modified_at = excluded.modified_at
		WHERE translations.is_human_edited = 0`,
		arg.Hash, arg.Lang, arg.Text, arg.ScopeKind, arg.ScopeID, arg.ModifiedAt, arg.ModifiedAt)
	if err != nil {
		return fmt.Errorf("upserting translation %s/%s: %w", arg.Hash, arg.Lang, err)
	}
	return nil
}

// UpdateHumanTranslationParams holds the fields for a human edit.
type UpdateHumanTranslationParams struct {
	Hash       string
	Lang       string
	Text       string
	ModifiedAt time.Time
}

// UpdateHumanTranslation records a manual correction. It sets the
// human-edited flag, which shields the record from later machine writes.
func (q *Queries) UpdateHumanTranslation(ctx context.Context, arg UpdateHumanTranslationParams) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE translations SET text = ?, is_human_edited = 1, modified_at = ?
		WHERE hash = ? AND lang = ?`,
		arg.Text, arg.ModifiedAt, arg.Hash, arg.Lang)
	if err != nil {
		return fmt.Errorf("updating translation %s/%s: %w", arg.Hash, arg.Lang, err)
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

// UntranslatedFilter narrows the untranslated-hash queries.
type UntranslatedFilter struct {
	Lang    string        // target language
	ScopeID sql.NullInt64 // optional scope restriction
}

// ListUntranslated returns the base-language records of every hash that has
// no translation in the target language yet, ordered by record id so batch
// processing is stable across calls.
func (q *Queries) ListUntranslated(ctx context.Context, arg UntranslatedFilter) ([]model.Translation, error) {
	query := `
		SELECT ` + translationColumns + ` FROM translations t
		WHERE t.lang = ?
		AND NOT EXISTS (SELECT 1 FROM translations x WHERE x.hash = t.hash AND x.lang = ?)`
	args := []any{model.LangOther, arg.Lang}
	if arg.ScopeID.Valid {
		query += ` AND EXISTS (SELECT 1 FROM scope_mappings m WHERE m.hash = t.hash AND m.scope_id = ?)`
		args = append(args, arg.ScopeID.Int64)
	}
	query += ` ORDER BY t.id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing untranslated for %s: %w", arg.Lang, err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// CountUntranslated returns the number of hashes ListUntranslated would yield.
// Used to compute a task's total eagerly at enqueue time.
func (q *Queries) CountUntranslated(ctx context.Context, arg UntranslatedFilter) (int64, error) {
	query := `
		SELECT COUNT(*) FROM translations t
		WHERE t.lang = ?
		AND NOT EXISTS (SELECT 1 FROM translations x WHERE x.hash = t.hash AND x.lang = ?)`
	args := []any{model.LangOther, arg.Lang}
	if arg.ScopeID.Valid {
		query += ` AND EXISTS (SELECT 1 FROM scope_mappings m WHERE m.hash = t.hash AND m.scope_id = ?)`
		args = append(args, arg.ScopeID.Int64)
	}

	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting untranslated for %s: %w", arg.Lang, err)
	}
	return count, nil
}

// UpsertScopeMapping links a hash to a scope. Duplicate inserts are no-ops.
func (q *Queries) UpsertScopeMapping(ctx context.Context, hash string, scopeID int64, createdAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scope_mappings (hash, scope_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (hash, scope_id) DO NOTHING`,
		hash, scopeID, createdAt)
	if err != nil {
		return fmt.Errorf("upserting scope mapping %s/%d: %w", hash, scopeID, err)
	}
	return nil
}

// ListScopeMappings returns all scope ids a hash appears in.
func (q *Queries) ListScopeMappings(ctx context.Context, hash string) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT scope_id FROM scope_mappings WHERE hash = ? ORDER BY scope_id`, hash)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteScopeMappings removes every mapping for a deleted scope and returns
// the number of mappings removed.
func (q *Queries) DeleteScopeMappings(ctx context.Context, scopeID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM scope_mappings WHERE scope_id = ?`, scopeID)
	if err != nil {
		return 0, fmt.Errorf("deleting scope mappings for %d: %w", scopeID, err)
	}
	return res.RowsAffected()
}

// PruneOrphans deletes translation records (all languages) whose hash has no
// remaining scope mapping. Returns the number of records removed.
func (q *Queries) PruneOrphans(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM translations
		WHERE hash NOT IN (SELECT hash FROM scope_mappings)`)
	if err != nil {
		return 0, fmt.Errorf("pruning orphaned translations: %w", err)
	}
	return res.RowsAffected()
}
