package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStorePutGetList(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	prompt := "Be brief."
	require.NoError(t, store.Put(ctx, Agent{
		ID:            "7",
		Name:          "Support",
		SystemPrompt:  &prompt,
		VoiceID:       "v1",
		VoiceSettings: &VoiceSettings{Stability: 0.4, SimilarityBoost: 0.6},
		IsActive:      true,
	}))
	require.NoError(t, store.Put(ctx, Agent{ID: "8", Name: "Silent"}))

	got, err := store.Get(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, "v1", got.VoiceID)
	require.NotNil(t, got.SystemPrompt)
	require.Equal(t, "Be brief.", *got.SystemPrompt)
	require.Equal(t, VoiceSettings{Stability: 0.4, SimilarityBoost: 0.6}, *got.VoiceSettings)
	require.True(t, got.IsActive)

	silent, err := store.Get(ctx, "8")
	require.NoError(t, err)
	require.Nil(t, silent.SystemPrompt)
	require.Nil(t, silent.VoiceSettings)
	require.Equal(t, DefaultVoiceSettings, silent.EffectiveVoiceSettings())

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
