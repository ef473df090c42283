package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource is one ingested document. Chunks reference it and share its lifetime.
type Resource struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Filename  string    `gorm:"size:256" json:"filename"`
	Content   string    `gorm:"type:longtext;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Resource) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
