package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Proton-105/koi-bot/internal/testutil"
)

func TestSequencer_KeepsOrderWithinChat(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSequencer(testutil.DiscardLogger())

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 50; i++ {
		i := i
		require.True(t, s.Submit(1, func() {
			if i%10 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	require.NoError(t, s.Close(context.Background()))

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
	assert.Zero(t, s.Active())
}

func TestSequencer_ChatsRunConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSequencer(testutil.DiscardLogger())
	release := make(chan struct{})
	done := make(chan struct{})

	// chat 1 blocks until chat 2 has run
	s.Submit(1, func() { <-release })
	s.Submit(2, func() {
		close(release)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 2 was blocked by chat 1")
	}

	require.NoError(t, s.Close(context.Background()))
}

func TestSequencer_RecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSequencer(testutil.DiscardLogger())
	ran := false

	s.Submit(1, func() { panic("boom") })
	s.Submit(1, func() { ran = true })

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, ran)
}

func TestSequencer_RejectsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSequencer(testutil.DiscardLogger())
	require.NoError(t, s.Close(context.Background()))

	assert.False(t, s.Submit(1, func() {}))
}

func TestSequencer_CloseHonoursDeadline(t *testing.T) {
	s := NewSequencer(testutil.DiscardLogger())
	release := make(chan struct{})
	s.Submit(1, func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, s.Close(context.Background()))
}
