package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docuchat/internal/model"
)

// newTestDB opens a throwaway sqlite database with the same schema and
// error translation the service uses against MySQL.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
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

func mustCreateResource(t *testing.T, repo *ResourceRepository, filename string, chunkContents []string) *model.Resource {
	t.Helper()
	resource := &model.Resource{Filename: filename, Content: "raw content of " + filename}
	chunks := make([]model.Chunk, len(chunkContents))
	for i, content := range chunkContents {
		chunks[i] = model.Chunk{Content: content}
		chunks[i].SetEmbedding([]float32{float32(i), 1, 0})
	}
	require.NoError(t, repo.CreateWithChunks(resource, chunks))
	return resource
}
