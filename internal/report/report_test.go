package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakforge/cloak/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestWriter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	w, err := s.BeginRun(ctx, "app", 99)
	require.NoError(t, err)
	require.NotEmpty(t, w.RunID())

	written := []pipeline.Result{
		{Seq: 1, Func: "sum", Pass: "flattening", Modified: true},
		{Seq: 2, Func: "sum", Pass: "instruction-substitution", Modified: true},
		{Seq: 3, Func: "diff", Pass: "flattening", Modified: false},
		{Seq: 4, Func: "diff", Pass: "instruction-substitution", Err: "boom"},
	}
	for _, r := range written {
		require.NoError(t, w.WriteResult(ctx, r))
	}
	require.NoError(t, w.Finish(ctx))

	got, err := s.Results(ctx, w.RunID())
	require.NoError(t, err)
	assert.Equal(t, written, got)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, w.RunID(), runs[0].ID)
	assert.Equal(t, "app", runs[0].Module)
	assert.Equal(t, int64(99), runs[0].Seed)

	// The writer's live counters match what the run row persisted.
	require.NotNil(t, runs[0].Stats)
	assert.Equal(t, w.Stats(), *runs[0].Stats)
	assert.Equal(t, 2, runs[0].Stats.Functions)
	assert.Equal(t, 4, runs[0].Stats.Results)
	assert.Equal(t, 2, runs[0].Stats.Modified)
	assert.Equal(t, 1, runs[0].Stats.Failures)
	assert.Equal(t, map[string]int{
		"flattening":               1,
		"instruction-substitution": 1,
	}, runs[0].Stats.PerPass)
}

func TestWriter_DuplicateSeqIgnored(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	w, err := s.BeginRun(ctx, "app", 0)
	require.NoError(t, err)

	r := pipeline.Result{Seq: 1, Func: "sum", Pass: "flattening", Modified: true}
	require.NoError(t, w.WriteResult(ctx, r))
	require.NoError(t, w.WriteResult(ctx, r))

	got, err := s.Results(ctx, w.RunID())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_RunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	w1, err := s.BeginRun(ctx, "first", 1)
	require.NoError(t, err)
	w2, err := s.BeginRun(ctx, "second", 2)
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, w2.RunID(), runs[0].ID)
	assert.Equal(t, w1.RunID(), runs[1].ID)

	// Unfinished runs have no stats yet.
	assert.Nil(t, runs[0].Stats)
	assert.Nil(t, runs[1].Stats)
}

func TestStore_ResultsUnknownRun(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Results(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}
