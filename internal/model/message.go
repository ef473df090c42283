package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a closed enumeration of conversation turn authors.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Source records one retrieval hit an assistant turn was produced from.
type Source struct {
	ResourceID string  `json:"resource_id"`
	Filename   string  `json:"filename"`
	Score      float32 `json:"score"`
}

// Message is one immutable conversation turn. ClientToken is a caller-derived
// idempotency key; the unique index makes a repeated flush of the same turn a
// no-op instead of a duplicate row.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID   string    `gorm:"size:36;not null;index;uniqueIndex:uq_session_client_token,priority:1" json:"session_id"`
	ClientToken string    `gorm:"size:64;not null;uniqueIndex:uq_session_client_token,priority:2" json:"client_token"`
	Role        Role      `gorm:"size:16;not null" json:"role"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Sources     string    `gorm:"type:text" json:"sources,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// SourceList returns the decoded sources; nil when the turn carried none.
func (m *Message) SourceList() []Source {
	if m.Sources == "" {
		return nil
	}
	var list []Source
	_ = json.Unmarshal([]byte(m.Sources), &list)
	return list
}

// SetSources encodes the sources for storage; empty input clears the column.
func (m *Message) SetSources(list []Source) {
	if len(list) == 0 {
		m.Sources = ""
		return
	}
	b, _ := json.Marshal(list)
	m.Sources = string(b)
}
