package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	args := m.Called(ctx, chatID)
	conv, _ := args.Get(0).(*Conversation)
	return conv, args.Error(1)
}

func (m *mockStorage) Set(ctx context.Context, chatID int64, conv *Conversation) error {
	args := m.Called(ctx, chatID, conv)
	return args.Error(0)
}

func (m *mockStorage) Clear(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *mockStorage) All(ctx context.Context) ([]*Conversation, error) {
	args := m.Called(ctx)
	convs, _ := args.Get(0).([]*Conversation)
	return convs, args.Error(1)
}

func TestStateMachine_TransitionTo(t *testing.T) {
	ctx := context.Background()
	chatID := int64(42)
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "successful transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, chatID).
					Return(&Conversation{ChatID: chatID, State: StateIdle}, nil).Once()
				ms.On("Set", mock.Anything, chatID, mock.MatchedBy(func(conv *Conversation) bool {
					return conv.State == StateAwaitingAddress
				})).Return(nil).Once()
			},
			newState: StateAwaitingAddress,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, chatID).
					Return(&Conversation{ChatID: chatID, State: StateAwaitingAddress}, nil).Once()
			},
			newState:    StateAwaitingTokenName,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "new conversation transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, chatID).
					Return((*Conversation)(nil), ErrStateNotFound).Once()
				ms.On("Set", mock.Anything, chatID, mock.MatchedBy(func(conv *Conversation) bool {
					return conv.State == StateAwaitingAddress && conv.ChatID == chatID
				})).Return(nil).Once()
			},
			newState: StateAwaitingAddress,
		},
		{
			name: "storage read failure",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, chatID).
					Return((*Conversation)(nil), errStorageFailure).Once()
			},
			newState:    StateAwaitingAddress,
			expectedErr: errStorageFailure,
		},
		{
			name: "storage write failure",
			setupMocks: func(ms *mockStorage) {
				ms.On("Get", mock.Anything, chatID).
					Return(&Conversation{ChatID: chatID, State: StateIdle}, nil).Once()
				ms.On("Set", mock.Anything, chatID, mock.Anything).
					Return(errStorageFailure).Once()
			},
			newState:    StateAwaitingAddress,
			expectedErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, log)
			err := fsm.TransitionTo(ctx, chatID, tc.newState)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_GetUnseenChat(t *testing.T) {
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	conv, err := fsm.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), conv.ChatID)
	assert.Equal(t, StateIdle, conv.State)
	assert.Zero(t, conv.MenuMessageID)
}

func TestStateMachine_UpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	_, err := fsm.Update(ctx, 1, func(conv *Conversation) error {
		conv.State = StateAwaitingAddress
		return errStorageFailure
	})
	assert.ErrorIs(t, err, errStorageFailure)

	conv, err := fsm.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, conv.State)
}

func TestStateMachine_ResetKeepsPendingMenu(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())
	layout := keyboard.Layout{{{Text: "Send Buy Tx", Token: "Send Buy Tx"}}}

	_, err := fsm.Update(ctx, 5, func(conv *Conversation) error {
		conv.RememberMenu(100, layout)
		conv.State = StateAwaitingAddress
		conv.Attempts = 3
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, fsm.Reset(ctx, 5))

	conv, err := fsm.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, conv.State)
	assert.Equal(t, 100, conv.MenuMessageID)
	assert.Equal(t, layout, conv.MenuLayout)
	assert.Zero(t, conv.Attempts)
}

func TestStateMachine_RecordsTransitions(t *testing.T) {
	var (
		mu       sync.Mutex
		recorded [][2]string
	)
	RegisterTransitionRecorder(func(from, to string) {
		mu.Lock()
		recorded = append(recorded, [2]string{from, to})
		mu.Unlock()
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	require.NoError(t, fsm.TransitionTo(ctx, 9, StateAwaitingAddress))
	require.NoError(t, fsm.TransitionTo(ctx, 9, StateAwaitingAddress))
	require.NoError(t, fsm.Reset(ctx, 9))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][2]string{
		{"idle", "awaiting_address"},
		{"awaiting_address", "idle"},
	}, recorded)
}

func TestStateMachine_SameConversationUpdatesAreExclusive(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	storage := newSlowStorage(time.Millisecond)
	fsm := NewStateMachine(storage, testLogger())

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fsm.Update(ctx, 77, func(conv *Conversation) error {
				conv.Attempts++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	conv, err := fsm.Get(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, writers, conv.Attempts, "lost update on a single conversation")
}

func TestStateMachine_DifferentConversationsDoNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := fsm.Update(ctx, 1, func(conv *Conversation) error {
			close(entered)
			<-release
			return nil
		})
		done <- err
	}()

	<-entered

	finished := make(chan error, 1)
	go func() {
		finished <- fsm.TransitionTo(ctx, 2, StateAwaitingAddress)
	}()

	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("update for chat 2 blocked behind chat 1")
	}

	close(release)
	assert.NoError(t, <-done)
}

func TestKeyedLocker_ReleasesEntries(t *testing.T) {
	locker := newKeyedLocker()

	unlock := locker.Lock(3)
	assert.Equal(t, 1, locker.size())
	unlock()
	assert.Equal(t, 0, locker.size())
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// slowStorage widens the read-modify-write window so unsynchronised updates would be lost.
type slowStorage struct {
	*MemoryStorage
	delay time.Duration
}

func newSlowStorage(delay time.Duration) *slowStorage {
	return &slowStorage{MemoryStorage: NewMemoryStorage(), delay: delay}
}

func (s *slowStorage) Set(ctx context.Context, chatID int64, conv *Conversation) error {
	time.Sleep(s.delay)
	return s.MemoryStorage.Set(ctx, chatID, conv)
}
