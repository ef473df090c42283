package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

const defaultSessionTitle = "New chat"

// TurnPublisher hands a conversation turn to the durable persistence queue.
type TurnPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is a read cache for a session's message history.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// Completer is the generation collaborator. Ask uses the blocking call when
// the caller supplies no stream sink.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

type ChatService struct {
	sessionRepo  *repository.ChatSessionRepository
	messageRepo  *repository.MessageRepository
	retrieval    *RetrievalService
	completer    Completer
	chatCfg      ai.ChatConfig
	publisher    TurnPublisher
	historyCache HistoryCache
	maxContext   int
}

func NewChatService(
	sessionRepo *repository.ChatSessionRepository,
	messageRepo *repository.MessageRepository,
	retrieval *RetrievalService,
	completer Completer,
	chatCfg ai.ChatConfig,
	publisher TurnPublisher,
	historyCache HistoryCache,
	maxContext int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		retrieval:    retrieval,
		completer:    completer,
		chatCfg:      chatCfg,
		publisher:    publisher,
		historyCache: historyCache,
		maxContext:   maxContext,
	}
}

type AskInput struct {
	SessionID string
	Question  string
	TopK      int
}

type AskResult struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Hits      []Hit  `json:"hits"`
}

// Ask retrieves context for the question, generates an answer, and queues
// both turns for durable persistence. A non-nil onChunk selects the
// streaming completion and receives the answer incrementally; a nil onChunk
// runs the blocking completion. Zero hits short-circuit to the canonical
// no-context answer without invoking generation. Retrieval and generation
// failures degrade to the same neutral answer instead of surfacing a raw
// error into the transcript.
func (s *ChatService) Ask(ctx context.Context, input AskInput, onChunk func(string) error) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	if s.chatCfg.BaseURL == "" || s.chatCfg.Model == "" {
		return nil, ErrLLMConfig
	}
	streaming := onChunk != nil

	session, err := s.resolveSession(input.SessionID, question)
	if err != nil {
		return nil, err
	}

	userTurnAt := time.Now()

	hits, err := s.retrieval.Retrieve(ctx, question, input.TopK)
	if err != nil {
		log.Printf("chat: retrieval failed, answering without context: %v", err)
		hits = nil
	}

	var answer string
	if len(hits) == 0 {
		answer = NoContextAnswer
		if streaming {
			if err := onChunk(answer); err != nil {
				return nil, err
			}
		}
	} else {
		prompt, err := s.buildPrompt(session.ID, question, hits)
		if err != nil {
			return nil, err
		}
		if streaming {
			answer, err = s.completer.StreamComplete(ctx, s.chatCfg, prompt, onChunk)
		} else {
			answer, err = s.completer.Complete(ctx, s.chatCfg, prompt)
		}
		if err != nil {
			// A generation failure never surfaces raw into the transcript.
			log.Printf("chat: generation failed for session %s: %v", session.ID, err)
			answer = ""
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			answer = NoContextAnswer
		}
	}

	// The assistant turn must land on a later millisecond than the user
	// turn, or its client token would collide and the persist worker would
	// drop it as a duplicate.
	assistantAt := time.Now()
	if assistantAt.UnixMilli() <= userTurnAt.UnixMilli() {
		assistantAt = userTurnAt.Add(time.Millisecond)
	}
	s.persistTurn(ctx, session.ID, model.RoleUser, question, nil, userTurnAt)
	s.persistTurn(ctx, session.ID, model.RoleAssistant, answer, HitsToSources(hits), assistantAt)

	return &AskResult{
		SessionID: session.ID,
		Answer:    answer,
		Hits:      hits,
	}, nil
}

func (s *ChatService) resolveSession(sessionID, question string) (*model.ChatSession, error) {
	if sessionID != "" {
		session, err := s.sessionRepo.Get(sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		return session, nil
	}
	return s.CreateSession(deriveTitle(question), derivePreview(question))
}

func (s *ChatService) buildPrompt(sessionID, question string, hits []Hit) ([]ai.ChatMessage, error) {
	history, err := s.messageRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) > s.maxContext {
		history = history[len(history)-s.maxContext:]
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: ContextPolicy()})
	for _, m := range history {
		messages = append(messages, ai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, ai.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", question, AssembleContext(hits)),
	})
	return messages, nil
}

// persistTurn queues one turn for the persist worker. The client token makes
// a re-flush of the same turn idempotent at the store. A publish failure is
// non-fatal: the answer was already produced, so the turn is only retained
// in the caller's non-durable state.
func (s *ChatService) persistTurn(ctx context.Context, sessionID string, role model.Role, content string, sources []model.Source, at time.Time) {
	msg := model.Message{
		SessionID:   sessionID,
		ClientToken: TurnToken(sessionID, at),
		Role:        role,
		Content:     content,
		CreatedAt:   at,
	}
	msg.SetSources(sources)

	s.invalidateHistory(ctx, sessionID)

	if s.publisher == nil {
		log.Printf("chat: no turn publisher configured, turn for session %s not persisted", sessionID)
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Printf("chat: publish turn for session %s failed, retaining client-side only: %v", sessionID, err)
	}
}

// TurnToken derives the stable idempotency key for a turn from its session
// and timestamp.
func TurnToken(sessionID string, at time.Time) string {
	return fmt.Sprintf("%s-%d", sessionID, at.UnixMilli())
}

func (s *ChatService) CreateSession(title, preview string) (*model.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	session := &model.ChatSession{
		Title:   title,
		Preview: strings.TrimSpace(preview),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(limit int) ([]model.ChatSession, error) {
	return s.sessionRepo.List(limit)
}

// MessageView is a message with its sources decoded for callers.
type MessageView struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      model.Role     `json:"role"`
	Content   string         `json:"content"`
	Sources   []model.Source `json:"sources,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SessionDetail is a session with its messages in creation order.
type SessionDetail struct {
	model.ChatSession
	Messages []MessageView `json:"messages"`
}

// GetSession returns the session and its ordered messages; soft-deleted
// sessions are still retrievable by id.
func (s *ChatService) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := s.sessionHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, len(messages))
	for i, m := range messages {
		views[i] = MessageView{
			ID:        m.ID,
			SessionID: m.SessionID,
			Role:      m.Role,
			Content:   m.Content,
			Sources:   m.SourceList(),
			CreatedAt: m.CreatedAt,
		}
	}
	return &SessionDetail{ChatSession: *session, Messages: views}, nil
}

func (s *ChatService) sessionHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

type UpdateSessionInput struct {
	Title        *string
	Preview      *string
	MessageCount *int
}

// UpdateSessionMeta applies the supplied fields only; updated_at always
// refreshes.
func (s *ChatService) UpdateSessionMeta(id string, input UpdateSessionInput) (*model.ChatSession, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Preview != nil {
		updates["preview"] = strings.TrimSpace(*input.Preview)
	}
	if input.MessageCount != nil {
		updates["message_count"] = *input.MessageCount
	}

	found, err := s.sessionRepo.UpdateMeta(id, updates)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return s.sessionRepo.Get(id)
}

// SoftDeleteSession excludes the session from listings without removing
// rows.
func (s *ChatService) SoftDeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	found, err := s.sessionRepo.SoftDelete(id)
	if err != nil {
		return err
	}
	if !found {
		return ErrSessionNotFound
	}
	s.invalidateHistory(ctx, id)
	return nil
}

type AppendMessageInput struct {
	SessionID   string
	Role        model.Role
	Content     string
	Sources     []model.Source
	ClientToken string
}

// AppendMessage durably appends one turn. A duplicate client token is a
// committed earlier flush; the call reports inserted=false and succeeds.
func (s *ChatService) AppendMessage(ctx context.Context, input AppendMessageInput) (*model.Message, bool, error) {
	if input.SessionID == "" || strings.TrimSpace(input.Content) == "" || !input.Role.Valid() {
		return nil, false, ErrInvalidInput
	}

	session, err := s.sessionRepo.Get(input.SessionID)
	if err != nil {
		return nil, false, err
	}
	if session == nil {
		return nil, false, ErrSessionNotFound
	}

	now := time.Now()
	token := input.ClientToken
	if token == "" {
		token = TurnToken(input.SessionID, now)
	}
	msg := &model.Message{
		SessionID:   input.SessionID,
		ClientToken: token,
		Role:        input.Role,
		Content:     input.Content,
		CreatedAt:   now,
	}
	msg.SetSources(input.Sources)

	inserted, err := s.messageRepo.Append(msg)
	if err != nil {
		return nil, false, err
	}
	s.invalidateHistory(ctx, input.SessionID)
	return msg, inserted, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID string) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, sessionID)
	_ = s.historyCache.DeleteHistory(ctx, sessionID)
}

func deriveTitle(firstMessage string) string {
	runes := []rune(strings.TrimSpace(firstMessage))
	if len(runes) <= 50 {
		return string(runes)
	}
	return string(runes[:50]) + "..."
}

func derivePreview(firstMessage string) string {
	runes := []rune(strings.TrimSpace(firstMessage))
	if len(runes) <= 100 {
		return string(runes)
	}
	return string(runes[:100])
}
