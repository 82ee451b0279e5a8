/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/oracle/deck"
)

func newTestDB(t *testing.T, path string) *DB {
	t.Helper()

	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())

	return db
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t, ":memory:")

	v, ok, err := db.Get(context.Background(), "p1", deck.QuestionsKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestPutOverwrites(t *testing.T) {
	db := newTestDB(t, "")
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "p1", deck.PeopleKey, "a, b"))
	require.NoError(t, db.Put(ctx, "p1", deck.PeopleKey, "c"))

	v, ok, err := db.Get(ctx, "p1", deck.PeopleKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestSaveLoadScopedByOwner(t *testing.T) {
	db := newTestDB(t, ":memory:")
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, "p1", "q1\nq2", "ann, bob"))
	require.NoError(t, db.Save(ctx, "p2", "", "cid"))

	got, err := db.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, Texts{Questions: "q1\nq2", People: "ann, bob", HasQuestions: true, HasPeople: true}, got)

	got, err = db.Load(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "", got.Questions)
	assert.True(t, got.HasQuestions)
	assert.Equal(t, "cid", got.People)

	got, err = db.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, Texts{}, got)
}

func TestFilePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracle.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Save(context.Background(), "p1", "q", "p"))
	require.NoError(t, db.Close())

	db = newTestDB(t, path)
	got, err := db.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "q", got.Questions)
	assert.Equal(t, "p", got.People)
}

func TestClosedDatabaseErrors(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Close())

	_, err = db.Load(context.Background(), "p1")
	assert.Error(t, err)
	assert.Error(t, db.Save(context.Background(), "p1", "q", "p"))
}
