package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-tutor/internal/tutor"
)

// StoredMessage represents a single message in a conversation.
type StoredMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is one tutoring run for a learner. The Session it carries
// lives only as long as the process.
type Conversation struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Channel      string          `json:"channel"`
	TutorialID   string          `json:"tutorial_id"`
	Session      *tutor.Session  `json:"-"`
	Messages     []StoredMessage `json:"messages"`
	StartedAt    time.Time       `json:"started_at"`
	LastActiveAt time.Time       `json:"last_active_at"`
	EndedAt      *time.Time      `json:"ended_at,omitempty"`
}

// ConversationStore holds conversation state and message history. Only
// active conversations are kept; ending one releases it.
type ConversationStore interface {
	CreateConversation(conv Conversation) (string, error)
	GetConversation(id string) (*Conversation, error)
	GetActiveConversation(userID string) (*Conversation, bool)
	AddMessage(conversationID string, msg StoredMessage) error
	EndConversation(id string) error
	// IdleConversations returns the conversations with no activity after
	// before.
	IdleConversations(before time.Time) []*Conversation
}

// MemoryStore is an in-memory implementation of ConversationStore.
type MemoryStore struct {
	conversations map[string]*Conversation
	active        map[string]string // user ID -> conversation ID
	mu            sync.RWMutex
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		active:        make(map[string]string),
	}
}

// CreateConversation stores conv as the user's active conversation. Any
// conversation the user already had open is ended and released.
func (s *MemoryStore) CreateConversation(conv Conversation) (string, error) {
	if conv.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if prev, ok := s.active[conv.UserID]; ok {
		s.conversations[prev].EndedAt = &now
		delete(s.conversations, prev)
	}

	id := uuid.NewString()
	conv.ID = id
	conv.StartedAt = now
	conv.LastActiveAt = now
	conv.EndedAt = nil
	if conv.Messages == nil {
		conv.Messages = []StoredMessage{}
	}
	s.conversations[id] = &conv
	s.active[conv.UserID] = id
	return id, nil
}

func (s *MemoryStore) GetConversation(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	return conv, nil
}

func (s *MemoryStore) GetActiveConversation(userID string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[userID]
	if !ok {
		return nil, false
	}
	return s.conversations[id], true
}

func (s *MemoryStore) AddMessage(conversationID string, msg StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	if msg.CreatedAt.After(conv.LastActiveAt) {
		conv.LastActiveAt = msg.CreatedAt
	}
	return nil
}

// EndConversation marks the conversation ended and drops it, with its
// Session and history, from the store.
func (s *MemoryStore) EndConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found: %s", id)
	}
	if conv.EndedAt == nil {
		now := time.Now()
		conv.EndedAt = &now
	}
	if s.active[conv.UserID] == id {
		delete(s.active, conv.UserID)
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) IdleConversations(before time.Time) []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idle []*Conversation
	for _, conv := range s.conversations {
		if !conv.LastActiveAt.After(before) {
			idle = append(idle, conv)
		}
	}
	return idle
}

// Len returns the number of conversations held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Messages returns a copy of a conversation's history.
func (s *MemoryStore) Messages(conversationID string) ([]StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("conversation not found: %s", conversationID)
	}
	return append([]StoredMessage(nil), conv.Messages...), nil
}
