// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fetch implements the asynchronous machine-translation pipeline:
// a tracker that enqueues fetch tasks with an eagerly computed entry total,
// and a background worker that drains queued tasks in fixed-size batches
// against the translation provider while persisting coarse progress for a
// polling client.
package fetch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/store"
)

// ErrTaskNotFound is returned by Poll for an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// Criteria selects which untranslated hashes a fetch task covers.
// ScopeID nil means all scopes.
type Criteria struct {
	Langs   []string `json:"langs"`
	ScopeID *int64   `json:"scope_id,omitempty"`
}

func (c Criteria) filter(lang string) store.UntranslatedFilter {
	f := store.UntranslatedFilter{Lang: lang}
	if c.ScopeID != nil {
		f.ScopeID = sql.NullInt64{Int64: *c.ScopeID, Valid: true}
	}
	return f
}

// Status is the client-facing view of a task, served to the polling loop.
type Status struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	Percentage int    `json:"percentage"`
	Error      string `json:"error,omitempty"`
}

// Tracker enqueues fetch tasks and answers progress polls.
type Tracker struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewTracker creates a task tracker backed by the given database.
func NewTracker(db *sql.DB, logger *slog.Logger) *Tracker {
	return &Tracker{queries: store.New(db), logger: logger}
}

// Enqueue creates a queued fetch task for the given criteria. The entry
// total is counted up front so the first poll already yields a meaningful
// percentage. Enqueueing with nothing to translate is allowed; the worker
// completes such a task immediately.
func (t *Tracker) Enqueue(ctx context.Context, c Criteria) (model.TaskProgress, error) {
	if len(c.Langs) == 0 {
		return model.TaskProgress{}, errors.New("enqueue: at least one target language required")
	}
	for _, lang := range c.Langs {
		if err := model.ValidateLangCode(lang); err != nil {
			return model.TaskProgress{}, fmt.Errorf("enqueue: %w", err)
		}
	}

	var total int64
	for _, lang := range c.Langs {
		n, err := t.queries.CountUntranslated(ctx, c.filter(lang))
		if err != nil {
			return model.TaskProgress{}, fmt.Errorf("enqueue: %w", err)
		}
		total += n
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return model.TaskProgress{}, fmt.Errorf("enqueue: encoding criteria: %w", err)
	}

	task, err := t.queries.CreateTask(ctx, store.CreateTaskParams{
		TaskID:       uuid.NewString(),
		TaskType:     model.TaskTypeFetch,
		Payload:      string(payload),
		TotalEntries: total,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return model.TaskProgress{}, fmt.Errorf("enqueue: %w", err)
	}

	t.logger.Info("fetch task enqueued",
		"category", model.EventCategoryFetch,
		"task_id", task.TaskID,
		"langs", c.Langs,
		"total_entries", total,
	)
	return task, nil
}

// Poll returns the current status and completion percentage of a task.
func (t *Tracker) Poll(ctx context.Context, taskID string) (Status, error) {
	task, err := t.queries.GetTaskByTaskID(ctx, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return Status{}, ErrTaskNotFound
	}
	if err != nil {
		return Status{}, fmt.Errorf("poll: %w", err)
	}
	return Status{
		TaskID:     task.TaskID,
		Status:     task.Status,
		Percentage: task.Percentage(),
		Error:      task.Error,
	}, nil
}
