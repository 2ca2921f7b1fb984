// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Task statuses. Transitions are monotonic:
// queued -> running -> completed|failed, never backwards.
const (
	TaskStatusQueued    = "queued"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task types
const (
	TaskTypeFetch = "fetch"
)

// TaskProgress tracks a long-running background task for a polling client.
// Rows are retained after the task reaches a terminal state for auditing.
type TaskProgress struct {
	ID               int64     `json:"id"`
	TaskID           string    `json:"task_id"` // UUID handed to the client
	TaskType         string    `json:"task_type"`
	Payload          string    `json:"-"` // JSON-encoded criteria, worker-internal
	TotalEntries     int64     `json:"total_entries"`
	ProcessedEntries int64     `json:"processed_entries"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ModifiedAt       time.Time `json:"modified_at"`
}

// Percentage returns the task completion as an integer 0-100.
// The value is floor(100 * processed / total), clamped to 100 so a task
// whose entry count drifted mid-run never reports over-completion.
func (t *TaskProgress) Percentage() int {
	if t.TotalEntries <= 0 {
		if t.Status == TaskStatusCompleted {
			return 100
		}
		return 0
	}
	pct := int(100 * t.ProcessedEntries / t.TotalEntries)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// IsTerminal returns true once the task has completed or failed.
func (t *TaskProgress) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// CanTransitionTo reports whether moving to the given status preserves the
// monotonic queued -> running -> completed|failed order.
func (t *TaskProgress) CanTransitionTo(status string) bool {
	switch t.Status {
	case TaskStatusQueued:
		return status == TaskStatusRunning || status == TaskStatusCompleted || status == TaskStatusFailed
	case TaskStatusRunning:
		return status == TaskStatusCompleted || status == TaskStatusFailed
	default:
		return false
	}
}
