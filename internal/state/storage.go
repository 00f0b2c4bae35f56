// Package state manages per-conversation dialogue state for the bot.
package state

import "context"

// Storage defines the persistence contract for conversation records.
type Storage interface {
	// Get returns the conversation for chatID or ErrStateNotFound.
	Get(ctx context.Context, chatID int64) (*Conversation, error)
	// Set saves the conversation under chatID.
	Set(ctx context.Context, chatID int64, conv *Conversation) error
	// Clear removes the conversation for chatID.
	Clear(ctx context.Context, chatID int64) error
	// All returns every stored conversation.
	All(ctx context.Context) ([]*Conversation, error)
}
