package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibank/fraudline-voice-service/internal/core/callflow"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(nil, "pod-1", "OmniBank Fraud Department")
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, m.Count())

	state, key := sess.Snapshot()
	assert.Equal(t, callflow.StateUnbound, state)
	assert.Empty(t, key)
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(nil, "pod-1", "OmniBank Fraud Department")
	ctx := context.Background()

	a, err := m.Create(ctx)
	require.NoError(t, err)
	b, err := m.Create(ctx)
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Count())
}

func TestGetUnknownSession(t *testing.T) {
	m := NewManager(nil, "pod-1", "OmniBank Fraud Department")

	_, err := m.Get("no-such-call")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEndDiscardsSession(t *testing.T) {
	m := NewManager(nil, "pod-1", "OmniBank Fraud Department")
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)

	ended, err := m.End(ctx, sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, ended)
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.End(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReapIdleEndsStaleSessions(t *testing.T) {
	m := NewManager(nil, "pod-1", "OmniBank Fraud Department")
	ctx := context.Background()

	stale, err := m.Create(ctx)
	require.NoError(t, err)
	fresh, err := m.Create(ctx)
	require.NoError(t, err)

	// Backdate the stale session's activity.
	stale.LastActivity = time.Now().Add(-time.Hour)

	reaped := m.ReapIdle(ctx, 10*time.Minute)
	assert.Equal(t, 1, reaped)
	assert.Equal(t, 1, m.Count())

	_, err = m.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestReapIdleKeepsActiveSessions(t *testing.T) {
	m := NewManager(nil, "pod-1", "OmniBank Fraud Department")
	ctx := context.Background()

	sess, err := m.Create(ctx)
	require.NoError(t, err)
	sess.Touch()

	assert.Equal(t, 0, m.ReapIdle(ctx, 10*time.Minute))
	assert.Equal(t, 1, m.Count())
}
