package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps conversations in process memory. Records are copied in
// and out so callers never share a record.
type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[int64]*Conversation
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{conversations: make(map[int64]*Conversation)}
}

// Get returns a copy of the stored conversation.
func (s *MemoryStorage) Get(_ context.Context, chatID int64) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[chatID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return conv.Clone(), nil
}

// Set stores a copy of conv and stamps UpdatedAt.
func (s *MemoryStorage) Set(_ context.Context, chatID int64, conv *Conversation) error {
	if conv == nil {
		return ErrNilConversation
	}

	stored := conv.Clone()
	stored.ChatID = chatID
	stored.UpdatedAt = time.Now().UTC()
	conv.UpdatedAt = stored.UpdatedAt

	s.mu.Lock()
	s.conversations[chatID] = stored
	s.mu.Unlock()
	return nil
}

// Clear removes the conversation.
func (s *MemoryStorage) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	delete(s.conversations, chatID)
	s.mu.Unlock()
	return nil
}

// All returns copies of every conversation.
func (s *MemoryStorage) All(_ context.Context) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.Clone())
	}
	return out, nil
}
