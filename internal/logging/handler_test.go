// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/store"
	"github.com/lingotag/lingotag/internal/testutil"
)

func newTestHandler(t *testing.T) (*slog.Logger, *store.Queries) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewEventLogHandler(inner, db))
	return logger, store.New(db)
}

func TestWarnReachesEventLog(t *testing.T) {
	logger, q := newTestHandler(t)

	logger.Warn("fetch batch skipped", "category", model.EventCategoryFetch, "entries", 10)

	events, err := q.ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventLevelWarning, events[0].Level)
	assert.Equal(t, model.EventCategoryFetch, events[0].Category)
	assert.Equal(t, "fetch batch skipped", events[0].Message)
	assert.Contains(t, events[0].Metadata, `"entries":"10"`)
	assert.NotContains(t, events[0].Metadata, "category")
}

func TestInfoStaysOutOfEventLog(t *testing.T) {
	logger, q := newTestHandler(t)

	logger.Info("tagging pass finished", "scanned", 12)

	events, err := q.ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestErrorLevelMapped(t *testing.T) {
	logger, q := newTestHandler(t)

	logger.Error("database unreachable")

	events, err := q.ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventLevelError, events[0].Level)
}

func TestCategoryInferredFromMessage(t *testing.T) {
	logger, q := newTestHandler(t)

	logger.Warn("scope mappings removed")
	logger.Warn("provider call rejected")
	logger.Warn("something unrelated happened")

	events, err := q.ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	// Newest first.
	assert.Equal(t, model.EventCategorySystem, events[0].Category)
	assert.Equal(t, model.EventCategoryFetch, events[1].Category)
	assert.Equal(t, model.EventCategoryScope, events[2].Category)
}

func TestWithAttrsPreservesForwarding(t *testing.T) {
	logger, q := newTestHandler(t)

	logger.With("task_id", "abc").Warn("fetch task failed", "category", model.EventCategoryFetch)

	events, err := q.ListRecentEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategoryFetch, events[0].Category)
}
