package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, time.Hour, testLogger())

	ctx := context.Background()
	conv := &Conversation{
		ChatID:        123,
		State:         StateAwaitingAddress,
		MenuMessageID: 55,
		MenuLayout: keyboard.Layout{
			{{Text: "✅ Wallet 1", Token: "✅ Wallet 1"}},
			{{Text: "Send Buy Tx", Token: "Send Buy Tx"}},
		},
	}

	err := storage.Set(ctx, conv.ChatID, conv)
	assert.NoError(t, err)

	result, err := storage.Get(ctx, conv.ChatID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, conv.ChatID, result.ChatID)
		assert.Equal(t, conv.State, result.State)
		assert.Equal(t, conv.MenuMessageID, result.MenuMessageID)
		assert.Equal(t, conv.MenuLayout, result.MenuLayout)
		assert.False(t, result.UpdatedAt.IsZero())
	}

	sub, ok := keyboard.Classify(result.MenuLayout)
	assert.True(t, ok)
	assert.Equal(t, keyboard.SubMenuBuy, sub)
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, time.Hour, testLogger())

	conv, err := storage.Get(context.Background(), 999)
	assert.Nil(t, conv)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_Clear(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, time.Hour, testLogger())
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, 456, &Conversation{State: StateAwaitingAddress}))
	require.NoError(t, storage.Clear(ctx, 456))

	conv, err := storage.Get(ctx, 456)
	assert.Nil(t, conv)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_All(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, time.Hour, testLogger())
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.Set(ctx, id, NewConversation(id)))
	}

	all, err := storage.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRedisStorage_SetNil(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, time.Hour, testLogger())
	assert.ErrorIs(t, storage.Set(context.Background(), 1, nil), ErrNilConversation)
}

func TestStateMachine_WithRedisStorage(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	fsm := NewStateMachine(NewRedisStorage(client, time.Hour, testLogger()), testLogger())

	require.NoError(t, fsm.TransitionTo(ctx, 10, StateAwaitingAddress))

	conv, err := fsm.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingAddress, conv.State)
}
