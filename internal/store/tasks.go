// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lingotag/lingotag/internal/model"
)

const taskColumns = `id, task_id, task_type, payload, total_entries, processed_entries, status, error, created_at, modified_at`

func scanTask(row interface{ Scan(...any) error }) (model.TaskProgress, error) {
	var t model.TaskProgress
	err := row.Scan(&t.ID, &t.TaskID, &t.TaskType, &t.Payload, &t.TotalEntries, &t.ProcessedEntries,
		&t.Status, &t.Error, &t.CreatedAt, &t.ModifiedAt)
	return t, err
}

// CreateTaskParams holds the fields for enqueueing a task. Payload carries
// the JSON-encoded task criteria so a worker can pick the task up later
// without any in-memory handoff.
type CreateTaskParams struct {
	TaskID       string
	TaskType     string
	Payload      string
	TotalEntries int64
	CreatedAt    time.Time
}

// CreateTask inserts a new task in queued state.
func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) (model.TaskProgress, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO task_progress (task_id, task_type, payload, total_entries, processed_entries, status, error, created_at, modified_at)
		VALUES (?, ?, ?, ?, 0, ?, '', ?, ?)
		RETURNING `+taskColumns,
		arg.TaskID, arg.TaskType, arg.Payload, arg.TotalEntries, model.TaskStatusQueued, arg.CreatedAt, arg.CreatedAt)
	return scanTask(row)
}

// GetTaskByTaskID returns a task by its client-facing UUID.
func (q *Queries) GetTaskByTaskID(ctx context.Context, taskID string) (model.TaskProgress, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM task_progress WHERE task_id = ?`, taskID)
	return scanTask(row)
}

// NextQueuedTask returns the oldest queued task, or sql.ErrNoRows.
func (q *Queries) NextQueuedTask(ctx context.Context) (model.TaskProgress, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM task_progress WHERE status = ? ORDER BY id LIMIT 1`,
		model.TaskStatusQueued)
	return scanTask(row)
}

// MarkTaskRunning transitions a queued task to running. The status guard in
// the WHERE clause keeps transitions monotonic even with competing workers:
// the second worker affects zero rows and moves on.
func (q *Queries) MarkTaskRunning(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE task_progress SET status = ?, modified_at = ?
		WHERE id = ? AND status = ?`,
		model.TaskStatusRunning, now, id, model.TaskStatusQueued)
	if err != nil {
		return false, fmt.Errorf("marking task %d running: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateTaskProgress persists the processed-entries counter after a batch.
func (q *Queries) UpdateTaskProgress(ctx context.Context, id, processed int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE task_progress SET processed_entries = ?, modified_at = ?
		WHERE id = ? AND status = ?`,
		processed, now, id, model.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("updating task %d progress: %w", id, err)
	}
	return nil
}

// CompleteTask transitions a running task to completed.
func (q *Queries) CompleteTask(ctx context.Context, id int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE task_progress SET status = ?, modified_at = ?
		WHERE id = ? AND status = ?`,
		model.TaskStatusCompleted, now, id, model.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("completing task %d: %w", id, err)
	}
	return nil
}

// FailTask transitions a task to failed and records the reason. Failure is
// reachable from both queued and running states (a task can fail before its
// first batch), but never from a terminal state.
func (q *Queries) FailTask(ctx context.Context, id int64, reason string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE task_progress SET status = ?, error = ?, modified_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		model.TaskStatusFailed, reason, now, id, model.TaskStatusQueued, model.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("failing task %d: %w", id, err)
	}
	return nil
}
