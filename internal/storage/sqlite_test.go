package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleuth/internal/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sleuth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRun(entity string) types.RunSummary {
	return types.RunSummary{
		ID:         uuid.New().String(),
		Entity:     entity,
		EntityType: "individual",
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	run := newRun("Jane Doe")

	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Entity)
	assert.Equal(t, "running", got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCreateRun_DuplicateIDFails(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	run := newRun("Jane Doe")

	require.NoError(t, s.CreateRun(ctx, run))
	assert.Error(t, s.CreateRun(ctx, run))
}

func TestAuditTrail_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	run := newRun("Jane Doe")
	require.NoError(t, s.CreateRun(ctx, run))

	first := []types.AuditEntry{
		{Node: "plan", Iteration: 0, Timestamp: time.Now().UTC(), Payload: map[string]any{"strategy": "broad"}},
	}
	second := []types.AuditEntry{
		{Node: "search", Iteration: 0, Timestamp: time.Now().UTC(), Payload: map[string]any{"results_count": float64(3)}},
		{Node: "refine", Iteration: 1, Timestamp: time.Now().UTC(), Payload: map[string]any{"should_continue": false}},
	}
	require.NoError(t, s.AppendAuditEntries(ctx, run.ID, first))
	require.NoError(t, s.AppendAuditEntries(ctx, run.ID, second))
	require.NoError(t, s.AppendAuditEntries(ctx, run.ID, nil)) // no-op

	trail, err := s.GetAuditTrail(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, []string{"plan", "search", "refine"},
		[]string{trail[0].Node, trail[1].Node, trail[2].Node})
	assert.Equal(t, "broad", trail[0].Payload["strategy"])
	assert.Equal(t, float64(3), trail[1].Payload["results_count"])
}

func TestSaveAndGetSnapshot(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	run := newRun("Jane Doe")
	require.NoError(t, s.CreateRun(ctx, run))

	// No snapshot yet
	snap, err := s.GetSnapshot(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, snap)

	run.Status = "completed"
	run.Iterations = 3
	run.Confidence = 0.63
	run.FactCount = 12
	require.NoError(t, s.SaveSnapshot(ctx, run, []byte(`{"entity":"Jane Doe"}`)))

	snap, err = s.GetSnapshot(ctx, run.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity":"Jane Doe"}`, string(snap))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 3, got.Iterations)
	assert.Equal(t, 0.63, got.Confidence)
	assert.Equal(t, 12, got.FactCount)
}

func TestSaveSnapshot_UnknownRunFails(t *testing.T) {
	s := newTestStorage(t)
	run := newRun("Jane Doe")
	run.Status = "completed"
	assert.Error(t, s.SaveSnapshot(context.Background(), run, []byte(`{}`)))
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		run := newRun("entity")
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		run.Entity = string(rune('a' + i))
		require.NoError(t, s.CreateRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "e", runs[0].Entity)
	assert.Equal(t, "d", runs[1].Entity)
	assert.Equal(t, "c", runs[2].Entity)
}
