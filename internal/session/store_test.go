package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	return store, path
}

func TestGetOrCreateIsStable(t *testing.T) {
	store, _ := newTestStore(t)

	first := store.GetOrCreate("conv-1", "opus")
	assert.Equal(t, "conv-1", first.ClawdbotID)
	assert.NotEmpty(t, first.ClaudeSessionID)
	assert.Equal(t, "opus", first.Model)
	assert.NotZero(t, first.CreatedAt)

	second := store.GetOrCreate("conv-1", "opus")
	assert.Equal(t, first.ClaudeSessionID, second.ClaudeSessionID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	other := store.GetOrCreate("conv-2", "sonnet")
	assert.NotEqual(t, first.ClaudeSessionID, other.ClaudeSessionID)
}

func TestLastUsedAtIsMonotonic(t *testing.T) {
	store, _ := newTestStore(t)

	clock := time.UnixMilli(1_000_000)
	store.now = func() time.Time { return clock }

	first := store.GetOrCreate("conv", "")
	assert.Equal(t, int64(1_000_000), first.LastUsedAt)

	// A clock step backwards must not move lastUsedAt backwards.
	clock = time.UnixMilli(900_000)
	second := store.GetOrCreate("conv", "")
	assert.Equal(t, int64(1_000_000), second.LastUsedAt)

	clock = time.UnixMilli(2_000_000)
	third := store.GetOrCreate("conv", "")
	assert.Equal(t, int64(2_000_000), third.LastUsedAt)
}

func TestPersistenceAcrossStores(t *testing.T) {
	store, path := newTestStore(t)
	minted := store.GetOrCreate("conv", "haiku")

	reopened, err := NewStore(path, nil)
	require.NoError(t, err)
	entry, ok := reopened.Get("conv")
	require.True(t, ok)
	assert.Equal(t, minted.ClaudeSessionID, entry.ClaudeSessionID)
	assert.Equal(t, "haiku", entry.Model)
}

func TestSessionFileShape(t *testing.T) {
	store, path := newTestStore(t)
	store.GetOrCreate("conv", "opus")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	entry := entries["conv"]
	require.NotNil(t, entry)
	for _, key := range []string{"clawdbotId", "claudeSessionId", "createdAt", "lastUsedAt", "model"} {
		assert.Contains(t, entry, key)
	}
}

func TestCleanupExpiresIdleMappings(t *testing.T) {
	store, _ := newTestStore(t)

	clock := time.UnixMilli(0)
	store.now = func() time.Time { return clock }

	store.GetOrCreate("stale", "")

	clock = clock.Add(2 * time.Hour)
	store.GetOrCreate("fresh", "")

	// Past the stale mapping's TTL, inside the fresh one's.
	clock = clock.Add(TTL - time.Hour)
	store.Cleanup()

	_, ok := store.Get("stale")
	assert.False(t, ok)
	_, ok = store.Get("fresh")
	assert.True(t, ok)
}

func TestMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o600))

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	_, ok := store.Get("anything")
	assert.False(t, ok)

	// The store recovers: new writes replace the corrupt file.
	store.GetOrCreate("conv", "")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	store.GetOrCreate("conv", "")
	store.Delete("conv")
	_, ok := store.Get("conv")
	assert.False(t, ok)

	// Deleting a missing key is a no-op.
	store.Delete("missing")
}
