package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "paperchat.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	sess, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.ReplaceDocument(ctx, sess.ID, testDocument("d", "Methods\nwe did it")))
	require.NoError(t, store.AppendMessages(ctx, sess.ID, Message{Role: RoleUser, Content: "methodology: how?", Target: "methodology"}))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Methods\nwe did it\n", got.Sections()[sections.Methodology])
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "methodology", got.Messages[0].Target)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperchat.db")
	for i := 0; i < 2; i++ {
		store, err := OpenSQLite(path)
		require.NoError(t, err)

		var version int
		require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
		assert.Equal(t, len(migrations()), version)
		require.NoError(t, store.Close())
	}
}

func TestSQLiteStore_PurgeIdle(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "paperchat.db"))
	require.NoError(t, err)
	defer store.Close()

	old, err := store.Create(ctx)
	require.NoError(t, err)
	_, err = store.db.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now().UTC().Add(-48*time.Hour), old.ID)
	require.NoError(t, err)
	fresh, err := store.Create(ctx)
	require.NoError(t, err)

	n, err := store.PurgeIdle(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
