package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
)

func newTestStore(t *testing.T) *MemoryCaseStore {
	t.Helper()
	return NewMemoryCaseStore(SeedCases())
}

func TestFindMatchesTokenInFreeFormSpeech(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key, err := s.Find(ctx, "Hi, this is Ravi calling")
	require.NoError(t, err)
	assert.Equal(t, "ravi", key)
}

func TestFindIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, utterance := range []string{"RAVI", "Ravi", "rAvI"} {
		key, err := s.Find(ctx, utterance)
		require.NoError(t, err, "utterance %q", utterance)
		assert.Equal(t, "ravi", key)
	}
}

func TestFindReturnsFirstTokenOrderMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Both tokens are stored keys; the earlier one in the utterance wins.
	key, err := s.Find(ctx, "aria and ravi")
	require.NoError(t, err)
	assert.Equal(t, "aria", key)
}

func TestFindRequiresExactTokenMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Substrings and partial names do not match.
	_, err := s.Find(ctx, "this is ravindra speaking")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	_, err = s.Find(ctx, "")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	_, err = s.Find(ctx, "nobody here at all")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Get(ctx, "ravi")
	require.NoError(t, err)
	rec.Status = "tampered"
	rec.SecurityAnswer = "tampered"

	again, err := s.Get(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusPendingReview, again.Status)
	assert.Equal(t, "5432", again.SecurityAnswer)
}

func TestGetUnknownKey(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestUpdateOverwritesStatusAndNote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "ravi", domain.CaseStatusConfirmedSafe, "ok"))

	rec, err := s.Get(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusConfirmedSafe, rec.Status)
	assert.Equal(t, "ok", rec.OutcomeNote)
}

func TestUpdateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "ravi", domain.CaseStatusConfirmedFraud, "disputed"))
	require.NoError(t, s.Update(ctx, "ravi", domain.CaseStatusConfirmedFraud, "disputed"))

	rec, err := s.Get(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusConfirmedFraud, rec.Status)
	assert.Equal(t, "disputed", rec.OutcomeNote)
}

func TestUpdateUnknownKeyIsSilentNoOp(t *testing.T) {
	s := newTestStore(t)

	assert.NoError(t, s.Update(context.Background(), "nobody", domain.CaseStatusConfirmedSafe, "ok"))
}

func TestUpdateRefusesConflictingResolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "ravi", domain.CaseStatusConfirmedSafe, "ok"))

	err := s.Update(ctx, "ravi", domain.CaseStatusConfirmedFraud, "disputed")
	assert.ErrorIs(t, err, ErrCaseResolved)

	// The first resolution sticks.
	rec, err := s.Get(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusConfirmedSafe, rec.Status)
}

func TestAllReturnsSeededCasesSorted(t *testing.T) {
	s := newTestStore(t)

	recs, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "aria", recs[0].CustomerKey)
	assert.Equal(t, "ravi", recs[3].CustomerKey)
}

func TestSeedKeysAreNormalized(t *testing.T) {
	s := NewMemoryCaseStore([]*domain.CaseRecord{
		{CustomerKey: "  DoReMon ", CaseID: "FRD-1", Status: domain.CaseStatusPendingReview},
	})

	key, err := s.Find(context.Background(), "hello doremon")
	require.NoError(t, err)
	assert.Equal(t, "doremon", key)
}

func TestLoadSeedFile(t *testing.T) {
	cases := []*domain.CaseRecord{
		{CustomerKey: "mira", CaseID: "FRD-9001", SecurityAnswer: "blue"},
	}
	data, err := json.Marshal(cases)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "mira", loaded[0].CustomerKey)
	// Missing status defaults to pending_review.
	assert.Equal(t, domain.CaseStatusPendingReview, loaded[0].Status)
}

func TestLoadSeedFileErrors(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = LoadSeedFile(path)
	assert.Error(t, err)
}
