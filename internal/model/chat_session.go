package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession is one conversation. MessageCount must equal the number of
// live Messages for the session at all times.
type ChatSession struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Title        string    `gorm:"size:256;not null" json:"title"`
	Preview      string    `gorm:"size:256" json:"preview"`
	MessageCount int       `gorm:"not null;default:0" json:"message_count"`
	IsDeleted    bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *ChatSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
