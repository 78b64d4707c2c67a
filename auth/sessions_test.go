package auth_test

import (
	"context"
	"testing"
	"time"

	"autonomeal/auth"
	"autonomeal/models"
	"autonomeal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionManagerStart(t *testing.T) {
	store := newFakeSessions()
	m := auth.NewSessionManager(store, time.Hour, zap.NewNop())

	sess, err := m.Start(context.Background(), "test-agent", "10.0.0.1")
	require.NoError(t, err)

	assert.False(t, sess.Authenticated())
	assert.False(t, sess.Permanent)
	assert.Len(t, sess.ID, 44, "32 random bytes, base64url encoded")
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)
	assert.Contains(t, store.data, sess.ID)
}

func TestSessionManagerResume(t *testing.T) {
	store := newFakeSessions()
	m := auth.NewSessionManager(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	sess, err := m.Start(ctx, "ua", "ip")
	require.NoError(t, err)

	got, err := m.Resume(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = m.Resume(ctx, "")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = m.Resume(ctx, "unknown")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSessionManagerRotate(t *testing.T) {
	store := newFakeSessions()
	m := auth.NewSessionManager(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	old, err := m.Start(ctx, "ua", "ip")
	require.NoError(t, err)

	next, err := m.Rotate(ctx, old, "ann")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, next.ID)
	assert.Equal(t, "ann", next.Username)
	assert.True(t, next.Permanent)
	assert.Equal(t, "ua", next.UserAgent)
	assert.NotContains(t, store.data, old.ID)

	// rotating without a prior session still issues one
	fresh, err := m.Rotate(ctx, nil, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", fresh.Username)
}

func TestSessionManagerEnd(t *testing.T) {
	store := newFakeSessions()
	m := auth.NewSessionManager(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	sess, err := m.Start(ctx, "ua", "ip")
	require.NoError(t, err)

	require.NoError(t, m.End(ctx, sess))
	assert.NotContains(t, store.data, sess.ID)
	assert.NoError(t, m.End(ctx, nil))
	assert.NoError(t, m.End(ctx, &models.Session{}))
}
