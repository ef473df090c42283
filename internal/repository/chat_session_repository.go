package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create chat session failed: %w", err)
	}
	return nil
}

// Get returns the session by id, soft-deleted or not; nil when absent.
func (r *ChatSessionRepository) Get(id string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session failed: %w", err)
	}
	return &session, nil
}

// List returns live sessions only, most recently updated first.
func (r *ChatSessionRepository) List(limit int) ([]model.ChatSession, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	var sessions []model.ChatSession
	if err := r.db.Where("is_deleted = ?", false).Order("updated_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list chat sessions failed: %w", err)
	}
	return sessions, nil
}

// UpdateMeta applies a partial update; updated_at is always refreshed.
// Returns false when the session does not exist.
func (r *ChatSessionRepository) UpdateMeta(id string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now()

	result := r.db.Model(&model.ChatSession{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("update chat session failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete flags the session deleted; rows stay in place.
func (r *ChatSessionRepository) SoftDelete(id string) (bool, error) {
	result := r.db.Model(&model.ChatSession{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_deleted": true,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return false, fmt.Errorf("soft delete chat session failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
