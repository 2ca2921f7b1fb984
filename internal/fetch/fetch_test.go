// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package fetch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingotag/lingotag/internal/fingerprint"
	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/provider"
	"github.com/lingotag/lingotag/internal/store"
	"github.com/lingotag/lingotag/internal/testutil"
)

// testWorkerConfig keeps tests fast: no real backoff, no rate limiting.
func testWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         2,
		MaxRetries:        0,
		RequestsPerMinute: 600000,
		RetryBaseDelay:    time.Millisecond,
	}
}

func seedBase(t *testing.T, q *store.Queries, text string, scopeID int64) model.Translation {
	t.Helper()
	ctx := context.Background()
	hash := fingerprint.Fingerprint(text)
	tr, err := q.CreateTranslation(ctx, store.CreateTranslationParams{
		Hash: hash, Lang: model.LangOther, Text: text,
		ScopeKind: model.ScopeKindCourse, ScopeID: scopeID, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, q.UpsertScopeMapping(ctx, hash, scopeID, time.Now()))
	return tr
}

func transientErr() error {
	return &provider.Error{Message: "timeout", Retryable: true}
}

func permanentErr() error {
	return &provider.Error{Message: "invalid api key", Retryable: false}
}

func TestEnqueueCountsTotalEagerly(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "one", 1)
	seedBase(t, q, "two", 1)
	seedBase(t, q, "three", 2)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusQueued, task.Status)
	assert.Equal(t, int64(3), task.TotalEntries)

	// Two languages double the entry count.
	task, err = tracker.Enqueue(ctx, Criteria{Langs: []string{"de", "fr"}})
	require.NoError(t, err)
	assert.Equal(t, int64(6), task.TotalEntries)

	// A scope filter narrows it.
	scope := int64(2)
	task, err = tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}, ScopeID: &scope})
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.TotalEntries)

	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, Status{TaskID: task.TaskID, Status: model.TaskStatusQueued, Percentage: 0}, st)
}

func TestEnqueueExcludesAlreadyTranslated(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	done := seedBase(t, q, "translated already", 1)
	seedBase(t, q, "still pending", 1)

	err := q.UpsertMachineTranslation(ctx, store.UpsertMachineTranslationParams{
		Hash: done.Hash, Lang: "de", Text: "schon fertig",
		ScopeKind: done.ScopeKind, ScopeID: done.ScopeID, ModifiedAt: time.Now(),
	})
	require.NoError(t, err)

	task, err := NewTracker(db, testutil.TestLogger()).Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.TotalEntries)
}

func TestEnqueueValidatesCriteria(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	tracker := NewTracker(db, testutil.TestLogger())
	ctx := context.Background()

	_, err := tracker.Enqueue(ctx, Criteria{})
	assert.Error(t, err)

	_, err = tracker.Enqueue(ctx, Criteria{Langs: []string{"not-a-lang-code"}})
	assert.Error(t, err)

	// The base sentinel is not a translation target.
	_, err = tracker.Enqueue(ctx, Criteria{Langs: []string{model.LangOther}})
	assert.Error(t, err)
}

func TestPollUnknownTask(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	_, err := NewTracker(db, testutil.TestLogger()).Poll(context.Background(), "no-such-task")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestWorkerCompletesTask(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "alpha", 1)
	seedBase(t, q, "beta", 1)
	seedBase(t, q, "gamma", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	mock := provider.NewMockProvider()
	w := NewWorker(db, mock, testWorkerConfig(), testutil.TestLogger())

	claimed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, st.Status)
	assert.Equal(t, 100, st.Percentage)

	// 3 entries with batch size 2: two provider calls.
	assert.Equal(t, 2, mock.CallCount())

	tr, err := q.GetTranslation(ctx, fingerprint.Fingerprint("alpha"), "de")
	require.NoError(t, err)
	assert.Equal(t, "[de] alpha", tr.Text)
	assert.False(t, tr.IsHumanEdited)

	// Nothing left queued.
	claimed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestWorkerEmptyTaskCompletesImmediately(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	ctx := context.Background()

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)
	require.Equal(t, int64(0), task.TotalEntries)

	mock := provider.NewMockProvider()
	w := NewWorker(db, mock, testWorkerConfig(), testutil.TestLogger())
	claimed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, st.Status)
	assert.Equal(t, 100, st.Percentage)
	assert.Equal(t, 0, mock.CallCount())
}

func TestWorkerSkipsBatchOnTransientFailure(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "first", 1)
	seedBase(t, q, "second", 1)
	seedBase(t, q, "third", 1)
	seedBase(t, q, "fourth", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	mock := provider.NewMockProvider()
	mock.FailNext(transientErr()) // first batch fails, second succeeds
	w := NewWorker(db, mock, testWorkerConfig(), testutil.TestLogger())

	claimed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Partial success still completes at 100%: skipped entries count as
	// processed for this task and stay eligible for a future one.
	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, st.Status)
	assert.Equal(t, 100, st.Percentage)

	remaining, err := q.CountUntranslated(ctx, store.UntranslatedFilter{Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestWorkerSkipsBatchOnMalformedReply(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "garbled", 1)
	seedBase(t, q, "also garbled", 1)
	seedBase(t, q, "clean", 1)
	seedBase(t, q, "also clean", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	mock := provider.NewMockProvider()
	mock.FailNext(&provider.MalformedResponseError{Detail: "not json"})
	w := NewWorker(db, mock, testWorkerConfig(), testutil.TestLogger())

	claimed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	// An unparseable reply poisons one batch, not the task. The skipped
	// entries stay untranslated and the later batch still lands.
	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, st.Status)
	assert.Equal(t, 100, st.Percentage)

	remaining, err := q.CountUntranslated(ctx, store.UntranslatedFilter{Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestWorkerRetriesTransientThenSucceeds(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "retry me", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	mock := provider.NewMockProvider()
	mock.FailNext(transientErr(), transientErr()) // third attempt succeeds
	cfg := testWorkerConfig()
	cfg.MaxRetries = 3
	w := NewWorker(db, mock, cfg, testutil.TestLogger())

	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, st.Status)
	assert.Equal(t, 3, mock.CallCount())

	_, err = q.GetTranslation(ctx, fingerprint.Fingerprint("retry me"), "de")
	assert.NoError(t, err)
}

func TestWorkerPermanentFailureFailsTask(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "doomed", 1)
	seedBase(t, q, "never reached", 1)
	seedBase(t, q, "also never", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	mock := provider.NewMockProvider()
	mock.FailNext(permanentErr())
	w := NewWorker(db, mock, testWorkerConfig(), testutil.TestLogger())

	claimed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	st, err := tracker.Poll(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, st.Status)
	assert.Contains(t, st.Error, "invalid api key")

	// Burning through the remaining batches would fail identically.
	assert.Equal(t, 1, mock.CallCount())
}

// progressProbe wraps a provider and observes task progress between batches.
type progressProbe struct {
	inner   provider.Provider
	tracker *Tracker
	taskID  string
	calls   int
	seen    []Status
}

func (p *progressProbe) Translate(ctx context.Context, req provider.Request) ([]string, error) {
	p.calls++
	if p.calls > 1 {
		st, err := p.tracker.Poll(ctx, p.taskID)
		if err != nil {
			return nil, err
		}
		p.seen = append(p.seen, st)
	}
	return p.inner.Translate(ctx, req)
}

func TestWorkerPersistsProgressPerBatch(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "a", 1)
	seedBase(t, q, "b", 1)
	seedBase(t, q, "c", 1)
	seedBase(t, q, "d", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	probe := &progressProbe{inner: provider.NewMockProvider(), tracker: tracker, taskID: task.TaskID}
	w := NewWorker(db, probe, testWorkerConfig(), testutil.TestLogger())

	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	// When the second batch starts, the first batch's progress is already
	// visible to a poller: 2 of 4, running, 50%.
	require.Len(t, probe.seen, 1)
	assert.Equal(t, model.TaskStatusRunning, probe.seen[0].Status)
	assert.Equal(t, 50, probe.seen[0].Percentage)
}

func TestWorkerSanitizesHTMLTranslations(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	seedBase(t, q, "<p>Hello</p>", 1)

	tracker := NewTracker(db, testutil.TestLogger())
	_, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}})
	require.NoError(t, err)

	mock := provider.NewMockProvider()
	mock.Translations["<p>Hello</p>"] = `<p>Hallo</p><script>alert(1)</script>`
	w := NewWorker(db, mock, testWorkerConfig(), testutil.TestLogger())

	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	tr, err := q.GetTranslation(ctx, fingerprint.Fingerprint("<p>Hello</p>"), "de")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hallo</p>", tr.Text)
}

func TestWorkerScopedTask(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	q := store.New(db)
	ctx := context.Background()

	inScope := seedBase(t, q, "in scope", 7)
	outScope := seedBase(t, q, "out of scope", 8)

	scope := int64(7)
	tracker := NewTracker(db, testutil.TestLogger())
	task, err := tracker.Enqueue(ctx, Criteria{Langs: []string{"de"}, ScopeID: &scope})
	require.NoError(t, err)
	require.Equal(t, int64(1), task.TotalEntries)

	w := NewWorker(db, provider.NewMockProvider(), testWorkerConfig(), testutil.TestLogger())
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	_, err = q.GetTranslation(ctx, inScope.Hash, "de")
	assert.NoError(t, err)
	_, err = q.GetTranslation(ctx, outScope.Hash, "de")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
