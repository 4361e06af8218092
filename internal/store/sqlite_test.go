package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubgrove/scholar-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRunSubject() model.Subject {
	return model.Subject{
		FirstName:    "Lukasz",
		LastName:     "Madej",
		Institution:  "AGH University of Science and Technology",
		FieldOfStudy: "Computer Science",
		MemberID:     "doc-123",
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunSubject())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "Madej", got.Subject.LastName)
	assert.Equal(t, RunRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_FinishRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunSubject())
	require.NoError(t, err)

	run.Status = RunCompleted
	run.Collected = 12
	run.Kept = 7
	run.Submitted = 5
	run.Report = `{"outcomes":[]}`
	require.NoError(t, st.FinishRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, 12, got.Collected)
	assert.Equal(t, 7, got.Kept)
	assert.Equal(t, 5, got.Submitted)
	assert.Equal(t, `{"outcomes":[]}`, got.Report)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.FinishedAt)
}

func TestSQLite_FinishRun_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunSubject())
	require.NoError(t, err)

	run.Status = RunFailed
	run.Error = "backend unreachable"
	require.NoError(t, st.FinishRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, got.Status)
	assert.Equal(t, "backend unreachable", got.Error)
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishRun(context.Background(), &Run{ID: "ghost", Status: RunCompleted})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for range 3 {
		_, err := st.CreateRun(ctx, testRunSubject())
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSQLite_ListRuns_StatusFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunSubject())
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, testRunSubject())
	require.NoError(t, err)

	run.Status = RunCompleted
	require.NoError(t, st.FinishRun(ctx, run))

	completed, err := st.ListRuns(ctx, RunFilter{Status: RunCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, run.ID, completed[0].ID)

	running, err := st.ListRuns(ctx, RunFilter{Status: RunRunning})
	require.NoError(t, err)
	assert.Len(t, running, 1)
}

func TestSQLite_ListRuns_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for range 5 {
		_, err := st.CreateRun(ctx, testRunSubject())
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
