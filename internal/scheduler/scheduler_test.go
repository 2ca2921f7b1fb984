// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingotag/lingotag/internal/reconcile"
	"github.com/lingotag/lingotag/internal/scanner"
	"github.com/lingotag/lingotag/internal/store"
	"github.com/lingotag/lingotag/internal/testutil"
)

func TestRunNowExecutesTaggingPass(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	src := testutil.SeedHostTable(t, db, "course_sections", false, [][3]any{
		{1, 3, "Schedule me"},
	})
	sc, err := scanner.New(db, scanner.Config{Sources: []store.SourceTable{src}}, testutil.TestLogger())
	require.NoError(t, err)
	engine := reconcile.New(db, sc, "", testutil.TestLogger())

	s := New(engine, "* * * * *", testutil.TestLogger())
	sum, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Tagged)
}

func TestStartStop(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	sc, err := scanner.New(db, scanner.Config{}, testutil.TestLogger())
	require.NoError(t, err)
	engine := reconcile.New(db, sc, "", testutil.TestLogger())

	s := New(engine, "* * * * *", testutil.TestLogger())
	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	sc, err := scanner.New(db, scanner.Config{}, testutil.TestLogger())
	require.NoError(t, err)
	engine := reconcile.New(db, sc, "", testutil.TestLogger())

	s := New(engine, "not a cron expression", testutil.TestLogger())
	assert.Error(t, s.Start())
}
