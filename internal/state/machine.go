package state

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrInvalidTransition indicates that a requested transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that no conversation record exists.
	ErrStateNotFound = errors.New("conversation state not found")
	// ErrNilConversation is returned when a nil record is stored.
	ErrNilConversation = errors.New("conversation is nil")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// UpdateFunc mutates a conversation in place. Returning an error aborts the
// update and nothing is saved.
type UpdateFunc func(conv *Conversation) error

// StateMachine describes the operations supported by the dialogue controller.
type StateMachine interface {
	// Get returns the conversation, or a fresh Idle record for unseen chats.
	Get(ctx context.Context, chatID int64) (*Conversation, error)
	// Update runs fn as an exclusive read-modify-write on one conversation.
	Update(ctx context.Context, chatID int64, fn UpdateFunc) (*Conversation, error)
	// TransitionTo moves the conversation to newState if allowed.
	TransitionTo(ctx context.Context, chatID int64, newState State) error
	// Reset returns the conversation to Idle and keeps the pending menu.
	Reset(ctx context.Context, chatID int64) error
	// Clear removes the conversation record.
	Clear(ctx context.Context, chatID int64) error
	// All returns every known conversation.
	All(ctx context.Context) ([]*Conversation, error)
}

type machine struct {
	storage Storage
	locks   *keyedLocker
	log     *slog.Logger
}

// NewStateMachine creates a dialogue controller over storage. Updates to one
// conversation are serialized; different conversations proceed in parallel.
func NewStateMachine(storage Storage, log *slog.Logger) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}

	return &machine{
		storage: storage,
		locks:   newKeyedLocker(),
		log:     log,
	}
}

func (m *machine) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	conv, err := m.storage.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return NewConversation(chatID), nil
		}
		return nil, err
	}
	return conv, nil
}

func (m *machine) All(ctx context.Context) ([]*Conversation, error) {
	return m.storage.All(ctx)
}

func (m *machine) Update(ctx context.Context, chatID int64, fn UpdateFunc) (*Conversation, error) {
	unlock := m.locks.Lock(chatID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conv, err := m.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}

	from := conv.State
	if from == "" {
		from = StateIdle
		conv.State = StateIdle
	}

	if fn != nil {
		if err := fn(conv); err != nil {
			return nil, err
		}
	}

	to := conv.State
	if to != from {
		if !IsTransitionAllowed(from, to) {
			m.log.Warn("invalid state transition",
				slog.Int64("chat_id", chatID),
				slog.String("from", string(from)),
				slog.String("to", string(to)),
			)
			return nil, ErrInvalidTransition
		}

		conv.Attempts = 0
		transitionRecorder(string(from), string(to))
		m.log.Debug("state transition",
			slog.Int64("chat_id", chatID),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
	}

	if err := m.storage.Set(ctx, chatID, conv); err != nil {
		return nil, err
	}

	return conv.Clone(), nil
}

func (m *machine) TransitionTo(ctx context.Context, chatID int64, newState State) error {
	_, err := m.Update(ctx, chatID, func(conv *Conversation) error {
		conv.State = newState
		return nil
	})
	return err
}

func (m *machine) Reset(ctx context.Context, chatID int64) error {
	return m.TransitionTo(ctx, chatID, StateIdle)
}

func (m *machine) Clear(ctx context.Context, chatID int64) error {
	unlock := m.locks.Lock(chatID)
	defer unlock()

	return m.storage.Clear(ctx, chatID)
}
