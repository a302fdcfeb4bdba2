package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fakeSession(exercise string, startedAt time.Time) Session {
	reps := gofakeit.Number(1, 40)
	return Session{
		Exercise:     exercise,
		Source:       gofakeit.RandomString([]string{"camera", "client", "process"}),
		Reps:         reps,
		AssistedReps: gofakeit.Number(0, reps),
		AssistMode:   gofakeit.Bool(),
		StartedAt:    startedAt,
		EndedAt:      startedAt.Add(time.Duration(gofakeit.Number(10, 600)) * time.Second),
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	started := time.Date(2026, 5, 5, 12, 0, 0, 123, time.UTC)
	in := fakeSession("squat", started)

	saved, err := s.SaveSession(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Len(t, saved.ID, 26)

	got, err := s.GetSession(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, in.Exercise, got.Exercise)
	assert.Equal(t, in.Source, got.Source)
	assert.Equal(t, in.Reps, got.Reps)
	assert.Equal(t, in.AssistedReps, got.AssistedReps)
	assert.Equal(t, in.AssistMode, got.AssistMode)
	assert.True(t, in.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, in.Duration(), got.Duration())
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSession_RequiresExercise(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveSession(context.Background(), Session{})
	assert.Error(t, err)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.SaveSession(ctx, fakeSession("squat", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.SaveSession(ctx, fakeSession("pull_up", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	all, err := s.ListSessions(ctx, ListParams{})
	require.NoError(t, err)
	assert.Len(t, all, 8)

	squats, err := s.ListSessions(ctx, ListParams{Exercise: "squat", Limit: 2})
	require.NoError(t, err)
	require.Len(t, squats, 2)
	assert.True(t, squats[0].StartedAt.Equal(base.Add(4*time.Hour)), "newest first")
	assert.True(t, squats[1].StartedAt.Equal(base.Add(3*time.Hour)))

	none, err := s.ListSessions(ctx, ListParams{Exercise: "push_up"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now()
	for _, in := range []Session{
		{Exercise: "squat", Source: "camera", Reps: 10, AssistedReps: 1, StartedAt: now, EndedAt: now},
		{Exercise: "squat", Source: "camera", Reps: 12, StartedAt: now, EndedAt: now},
		{Exercise: "bicep_curl", Source: "client", Reps: 8, StartedAt: now, EndedAt: now},
	} {
		_, err := s.SaveSession(ctx, in)
		require.NoError(t, err)
	}

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ExerciseTotals{
		{Exercise: "bicep_curl", Sessions: 1, Reps: 8},
		{Exercise: "squat", Sessions: 2, Reps: 22, AssistedReps: 1},
	}, totals)
}
