package runstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestPutGet(t *testing.T) {
	s := openStore(t)

	r := NewRun("churn")
	r.Params = "num_iterations=5 objective=binary"
	r.Iterations = 5
	r.NumClasses = 1
	r.Duration = 250 * time.Millisecond
	r.Scores = map[string]map[string]float64{"train": {"auc": 0.91}}
	require.NoError(t, s.Put(r))

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, got.Name)
	assert.Equal(t, r.Params, got.Params)
	assert.Equal(t, 5, got.Iterations)
	assert.Equal(t, 0.91, got.Scores["train"]["auc"])
	assert.True(t, r.StartedAt.Equal(got.StartedAt))
}

func TestGetUnknown(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("0b0e0b0e-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPutRejectsBadID(t *testing.T) {
	s := openStore(t)
	assert.Error(t, s.Put(&Run{}))
	assert.Error(t, s.Put(&Run{ID: "run-1"}))
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		r := NewRun("run")
		r.StartedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Put(r))
		ids = append(ids, r.ID)
	}

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = s.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)
	r := NewRun("a")
	require.NoError(t, s.Put(r))
	r.Error = "boom"
	require.NoError(t, s.Put(r))

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "boom", runs[0].Error)
}
