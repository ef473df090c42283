package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/model"
)

func newSession(t *testing.T, repo *ChatSessionRepository, title string) *model.ChatSession {
	t.Helper()
	session := &model.ChatSession{Title: title}
	require.NoError(t, repo.Create(session))
	return session
}

func appendTurn(t *testing.T, repo *MessageRepository, sessionID string, role model.Role, content, token string, at time.Time) bool {
	t.Helper()
	msg := &model.Message{
		SessionID:   sessionID,
		ClientToken: token,
		Role:        role,
		Content:     content,
		CreatedAt:   at,
	}
	inserted, err := repo.Append(msg)
	require.NoError(t, err)
	return inserted
}

func TestAppendKeepsMessageCountInSync(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)
	messages := NewMessageRepository(db)

	session := newSession(t, sessions, "count test")
	base := time.Now().Add(-time.Minute)

	const n = 6
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		at := base.Add(time.Duration(i) * time.Second)
		inserted := appendTurn(t, messages, session.ID, role, fmt.Sprintf("turn %d", i), fmt.Sprintf("%s-%d", session.ID, at.UnixMilli()), at)
		assert.True(t, inserted)
	}

	got, err := sessions.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.MessageCount)

	list, err := messages.ListBySessionID(session.ID)
	require.NoError(t, err)
	require.Len(t, list, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("turn %d", i), list[i].Content)
	}
}

func TestAppendDuplicateTokenIsNoOp(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)
	messages := NewMessageRepository(db)

	session := newSession(t, sessions, "dedup test")
	at := time.Now()
	token := fmt.Sprintf("%s-%d", session.ID, at.UnixMilli())

	assert.True(t, appendTurn(t, messages, session.ID, model.RoleUser, "hello", token, at))
	// Same conversation state flushed again.
	assert.False(t, appendTurn(t, messages, session.ID, model.RoleUser, "hello", token, at))

	count, err := messages.CountBySessionID(session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := sessions.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)
}

func TestAppendToMissingSession(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)

	msg := &model.Message{
		SessionID:   "ghost",
		ClientToken: "ghost-1",
		Role:        model.RoleUser,
		Content:     "anyone there?",
		CreatedAt:   time.Now(),
	}
	inserted, err := messages.Append(msg)
	assert.False(t, inserted)
	assert.ErrorIs(t, err, ErrSessionGone)

	// The message insert must have rolled back with the failed count bump.
	count, err := messages.CountBySessionID("ghost")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestSoftDeleteHidesFromListButKeepsGet(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)

	kept := newSession(t, sessions, "kept")
	dropped := newSession(t, sessions, "dropped")

	found, err := sessions.SoftDelete(dropped.ID)
	require.NoError(t, err)
	assert.True(t, found)

	list, err := sessions.List(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	got, err := sessions.Get(dropped.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDeleted)
}

func TestListOrdersByUpdatedAtDesc(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)

	first := newSession(t, sessions, "first")
	second := newSession(t, sessions, "second")

	// Touching the older session moves it to the front.
	found, err := sessions.UpdateMeta(first.ID, map[string]interface{}{"title": "first touched"})
	require.NoError(t, err)
	require.True(t, found)

	list, err := sessions.List(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestUpdateMetaPartial(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)

	session := newSession(t, sessions, "original title")
	before, err := sessions.Get(session.ID)
	require.NoError(t, err)

	found, err := sessions.UpdateMeta(session.ID, map[string]interface{}{"preview": "a preview"})
	require.NoError(t, err)
	require.True(t, found)

	after, err := sessions.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "original title", after.Title)
	assert.Equal(t, "a preview", after.Preview)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestListClampsOversizedLimit(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)

	for i := 0; i < 52; i++ {
		newSession(t, sessions, fmt.Sprintf("session %02d", i))
	}

	// An out-of-range limit clamps to the cap; it must not shrink to the
	// default of 50.
	list, err := sessions.List(500)
	require.NoError(t, err)
	assert.Len(t, list, 52)

	list, err = sessions.List(0)
	require.NoError(t, err)
	assert.Len(t, list, 50)
}

func TestUpdateMetaMissingSession(t *testing.T) {
	db := newTestDB(t)
	sessions := NewChatSessionRepository(db)

	found, err := sessions.UpdateMeta("no-such-id", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	assert.False(t, found)
}
