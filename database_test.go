package docmodel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/model"
	"github.com/poiesic/docmodel/storage"
	"github.com/poiesic/docmodel/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Validate())
		assert.True(t, cfg.InMemory)
		assert.GreaterOrEqual(t, cfg.PoolSize, 1)
		assert.NotNil(t, cfg.Logger)
	})

	t.Run("on-disk needs a path", func(t *testing.T) {
		cfg := NewConfig(WithInMemory(false))
		assert.Error(t, cfg.Validate())

		cfg = NewConfig(WithInMemory(false), WithPath("  /tmp/x  "))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "/tmp/x", cfg.Path)
	})

	t.Run("in-memory rejects a path", func(t *testing.T) {
		assert.Error(t, NewConfig(WithPath("/tmp/x")).Validate())
	})

	t.Run("negative pool", func(t *testing.T) {
		assert.Error(t, NewConfig(WithPoolSize(-1)).Validate())
	})

	t.Run("store skips path checks", func(t *testing.T) {
		store, err := badger.NewMemoryStore()
		require.NoError(t, err)
		defer store.Close()
		cfg := NewConfig(WithStore(store), WithInMemory(false), WithLogger(nil))
		require.NoError(t, cfg.Validate())
		assert.NotNil(t, cfg.Logger)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("in memory", func(t *testing.T) {
		db, err := Open(ctx, nil)
		require.NoError(t, err)
		defer db.Close()
		assert.NotNil(t, db.Store())
	})

	t.Run("on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		db, err := Open(ctx, NewConfig(WithInMemory(false), WithPath(dir), WithTimestamps(true)))
		require.NoError(t, err)

		doc, err := db.Store().Insert(ctx, core.Document{"a": 1})
		require.NoError(t, err)
		assert.Contains(t, doc, "createdAt")
		require.NoError(t, db.Close())

		db, err = Open(ctx, NewConfig(WithInMemory(false), WithPath(dir)))
		require.NoError(t, err)
		defer db.Close()
		count, err := db.Store().Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("invalid path", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0644))

		db, err := Open(ctx, NewConfig(WithInMemory(false), WithPath(file)))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("reused store stays open", func(t *testing.T) {
		store, err := badger.NewMemoryStore()
		require.NoError(t, err)
		defer store.Close()

		db, err := Open(ctx, NewConfig(WithStore(store)))
		require.NoError(t, err)
		assert.Same(t, store, db.Store())
		require.NoError(t, db.Close())

		_, err = store.Insert(ctx, core.Document{})
		assert.NoError(t, err)
	})

	t.Run("load failure", func(t *testing.T) {
		store, err := badger.NewMemoryStore()
		require.NoError(t, err)
		require.NoError(t, store.Close())

		_, err = Open(ctx, NewConfig(WithStore(store)))
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
	})
}

// End to end: a schema with one unique and one indexed attribute yields
// exactly those two indexes after Initialize.
func TestBindAndInitialize(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, NewConfig(WithPoolSize(2)))
	require.NoError(t, err)
	defer db.Close()

	users, err := db.Bind(model.NewSchema("user", core.Attrs{
		"email": {Unique: true},
		"team":  {Index: true},
		"bio":   {},
	}))
	require.NoError(t, err)
	require.NoError(t, users.Initialize(ctx))

	indexes, err := db.Store().Indexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.IndexOptions{
		{FieldName: "email", Unique: true},
		{FieldName: "team", Unique: false},
	}, indexes)

	alice := users.Schema().New(core.Document{"email": "alice@example.com", "team": "core"})
	_, err = users.Save(ctx, alice)
	require.NoError(t, err)

	found, ok, err := users.Find(ctx, alice.Primary())
	require.NoError(t, err)
	require.True(t, ok)
	team, _ := found.Get("team")
	assert.Equal(t, "core", team)

	_, err = db.Bind(nil)
	assert.ErrorIs(t, err, model.ErrSchemaRequired)
}
