package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	created, err := store.Create(ctx, New("u1", "7", map[string]string{"voiceId": "v1"}))
	require.NoError(t, err)
	require.Equal(t, StatusActive, created.Status)
	require.Nil(t, created.EndedAt)
	require.Equal(t, "v1", created.Metadata["voiceId"])

	text, reply := "hello", "hi there"
	updated, err := store.Update(ctx, created.ID, Patch{Transcription: &text, AgentResponse: &reply})
	require.NoError(t, err)
	require.Equal(t, "hello", updated.Transcription)
	require.Equal(t, "hi there", updated.AgentResponse)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ended, err := store.Complete(ctx, created.ID, at)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, ended.Status)
	require.NotNil(t, ended.EndedAt)
	require.True(t, ended.EndedAt.Equal(at))

	_, err = store.Complete(ctx, created.ID, at.Add(time.Hour))
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestSQLiteStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Update(ctx, "missing", Patch{})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Complete(ctx, "missing", time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewStore(context.Background(), StoreOptions{Driver: "redis"})
	require.Error(t, err)
}
