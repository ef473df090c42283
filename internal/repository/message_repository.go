package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

// ErrSessionGone means an append targeted a session id with no row behind it.
var ErrSessionGone = errors.New("session row missing for append")

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts the message and bumps the session's message_count and
// updated_at in one transaction, so a partially applied append is never
// observable. A message whose (session_id, client_token) already exists is
// a committed duplicate flush: Append returns (false, nil) and changes
// nothing.
func (r *MessageRepository) Append(msg *model.Message) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		result := tx.Model(&model.ChatSession{}).Where("id = ?", msg.SessionID).Updates(map[string]interface{}{
			"message_count": gorm.Expr("message_count + 1"),
			"updated_at":    time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSessionGone
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		if errors.Is(err, ErrSessionGone) {
			return false, err
		}
		return false, fmt.Errorf("append message failed: %w", err)
	}
	return true, nil
}

// ListBySessionID returns the session's messages in creation order.
func (r *MessageRepository) ListBySessionID(sessionID string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) CountBySessionID(sessionID string) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Message{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count messages failed: %w", err)
	}
	return count, nil
}
