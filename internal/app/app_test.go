package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docuchat/internal/model"
	"docuchat/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "app.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Resource{},
		&model.Chunk{},
		&model.ChatSession{},
		&model.Message{},
	))
	return db
}

// stubEmbedder returns deterministic vectors and records what it was asked
// to embed.
type stubEmbedder struct {
	vectors     map[string][]float32
	fallbackVec []float32
	batchErr    error
	oneCalls    int
	batchCalls  [][]string
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	s.oneCalls++
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallbackVec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.batchCalls = append(s.batchCalls, texts)
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = s.fallbackVec
	}
	return out, nil
}

func seedChunk(t *testing.T, db *gorm.DB, resourceID, content string, vec []float32) {
	t.Helper()
	chunk := model.Chunk{ResourceID: resourceID, Content: content}
	chunk.SetEmbedding(vec)
	require.NoError(t, db.Create(&chunk).Error)
}

func seedResource(t *testing.T, db *gorm.DB, filename string) string {
	t.Helper()
	repo := repository.NewResourceRepository(db)
	res := &model.Resource{Filename: filename, Content: fmt.Sprintf("content of %s", filename)}
	require.NoError(t, repo.CreateWithChunks(res, nil))
	return res.ID
}
