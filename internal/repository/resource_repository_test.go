package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/model"
)

func TestCreateWithChunksCommitsTogether(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)
	chunks := NewChunkRepository(db)

	res := mustCreateResource(t, resources, "notes.txt", []string{"first span", "second span"})

	assert.NotEmpty(t, res.ID)
	count, err := chunks.CountByResourceID(res.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestCreateWithChunksRollsBackOnChunkFailure(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)

	resource := &model.Resource{Filename: "doomed.txt", Content: "text"}
	bad := []model.Chunk{
		{Content: "ok", Embedding: "[]"},
		{ID: "fixed-id", Content: "ok", Embedding: "[]"},
		{ID: "fixed-id", Content: "duplicate pk", Embedding: "[]"},
	}
	err := resources.CreateWithChunks(resource, bad)
	require.Error(t, err)

	// The resource row must not survive the failed chunk insert.
	got, err := resources.Get(resource.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteCascadesToOwnChunksOnly(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)
	chunks := NewChunkRepository(db)

	victim := mustCreateResource(t, resources, "a.txt", []string{"a1", "a2", "a3"})
	bystander := mustCreateResource(t, resources, "b.txt", []string{"b1", "b2"})

	deleted, err := resources.Delete(victim.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	victimCount, err := chunks.CountByResourceID(victim.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, victimCount)

	bystanderCount, err := chunks.CountByResourceID(bystander.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, bystanderCount)
}

func TestGetResource(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)

	created := mustCreateResource(t, resources, "kept.txt", []string{"k1"})

	got, err := resources.Get(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept.txt", got.Filename)

	missing, err := resources.Get("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteMissingResource(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)

	deleted, err := resources.Delete("no-such-id")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestClearAllLeavesNothing(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)
	chunks := NewChunkRepository(db)

	mustCreateResource(t, resources, "a.txt", []string{"a1"})
	mustCreateResource(t, resources, "b.txt", []string{"b1", "b2"})

	removed, err := resources.ClearAll()
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	chunkCount, err := chunks.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 0, chunkCount)

	summaries, err := resources.ListRecent(10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListRecentOrderAndChunkCounts(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)

	older := &model.Resource{Filename: "older.txt", Content: "x", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, resources.CreateWithChunks(older, []model.Chunk{{Content: "o1", Embedding: "[]"}}))

	newer := &model.Resource{Filename: "newer.txt", Content: "y", CreatedAt: time.Now()}
	require.NoError(t, resources.CreateWithChunks(newer, []model.Chunk{
		{Content: "n1", Embedding: "[]"},
		{Content: "n2", Embedding: "[]"},
	}))

	summaries, err := resources.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "newer.txt", summaries[0].Filename)
	assert.EqualValues(t, 2, summaries[0].Chunks)
	assert.Equal(t, "older.txt", summaries[1].Filename)
	assert.EqualValues(t, 1, summaries[1].Chunks)
}

func TestListRecentClampsOversizedLimit(t *testing.T) {
	db := newTestDB(t)
	resources := NewResourceRepository(db)

	for i := 0; i < 15; i++ {
		mustCreateResource(t, resources, fmt.Sprintf("doc-%02d.txt", i), []string{"span"})
	}

	// An out-of-range limit clamps to the cap; it must not shrink to the
	// default.
	summaries, err := resources.ListRecent(60)
	require.NoError(t, err)
	assert.Len(t, summaries, 15)

	summaries, err = resources.ListRecent(0)
	require.NoError(t, err)
	assert.Len(t, summaries, 12)
}
