package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/repository"
)

func passThroughExtractor(filename string, data []byte) (string, error) {
	return string(data), nil
}

func TestIngestPersistsResourceAndChunks(t *testing.T) {
	db := newTestDB(t)
	resourceRepo := repository.NewResourceRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}

	// size 10, overlap 2 gives step 8: 20 chars land in 3 chunks.
	svc := NewIngestService(resourceRepo, embedder, passThroughExtractor, 10, 2)

	result, err := svc.Ingest(context.Background(), []IngestFile{
		{Name: "long.txt", Data: []byte(strings.Repeat("ab", 10))},
		{Name: "short.txt", Data: []byte("tiny")},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	assert.Equal(t, "long.txt", result.Files[0].Filename)
	assert.Equal(t, 3, result.Files[0].Chunks)
	assert.Empty(t, result.Files[0].Error)
	assert.Equal(t, 1, result.Files[1].Chunks)
	assert.Equal(t, 4, result.Inserted)

	count, err := chunkRepo.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	recent, err := resourceRepo.ListRecent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestIngestIsolatesFailingFile(t *testing.T) {
	db := newTestDB(t)
	resourceRepo := repository.NewResourceRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}

	extractor := func(filename string, data []byte) (string, error) {
		if filename == "bad.bin" {
			return "", errors.New("not text")
		}
		return string(data), nil
	}
	svc := NewIngestService(resourceRepo, embedder, extractor, 100, 10)

	result, err := svc.Ingest(context.Background(), []IngestFile{
		{Name: "bad.bin", Data: []byte{0xff, 0xfe}},
		{Name: "good.txt", Data: []byte("fine content")},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	assert.Equal(t, "not text", result.Files[0].Error)
	assert.Zero(t, result.Files[0].Chunks)
	assert.Equal(t, 1, result.Files[1].Chunks)
	assert.Equal(t, 1, result.Inserted)

	count, err := chunkRepo.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIngestEmbedFailureLeavesNothingBehind(t *testing.T) {
	db := newTestDB(t)
	resourceRepo := repository.NewResourceRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	embedder := &stubEmbedder{batchErr: errors.New("provider down")}

	svc := NewIngestService(resourceRepo, embedder, passThroughExtractor, 100, 10)

	result, err := svc.Ingest(context.Background(), []IngestFile{
		{Name: "doc.txt", Data: []byte("some content")},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "provider down", result.Files[0].Error)
	assert.Zero(t, result.Inserted)

	count, err := chunkRepo.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	resources, err := resourceRepo.ListAll()
	require.NoError(t, err)
	assert.Empty(t, resources)
}

func TestIngestEmptyExtractionIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	resourceRepo := repository.NewResourceRepository(db)
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}

	svc := NewIngestService(resourceRepo, embedder, passThroughExtractor, 100, 10)

	result, err := svc.Ingest(context.Background(), []IngestFile{
		{Name: "blank.txt", Data: []byte("   \n\t  ")},
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Zero(t, result.Files[0].Chunks)
	assert.Empty(t, result.Files[0].Error)
	assert.Empty(t, embedder.batchCalls)
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(repository.NewResourceRepository(db), &stubEmbedder{}, passThroughExtractor, 100, 10)

	_, err := svc.Ingest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
