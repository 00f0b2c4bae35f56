package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/koi-bot/internal/jobs"
	"github.com/Proton-105/koi-bot/internal/testutil"
)

type fakeRefresher struct {
	calls int
	n     int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Cleanup(context.Context) int {
	f.calls++
	return 3
}

func TestQuoteRefreshHandler(t *testing.T) {
	task, err := jobs.NewQuoteRefreshTask("cli", time.Now())
	require.NoError(t, err)

	t.Run("refreshes", func(t *testing.T) {
		quotes := &fakeRefresher{n: 2}
		h := NewQuoteRefreshHandler(quotes, testutil.DiscardLogger())

		require.NoError(t, h.ProcessTask(context.Background(), task))
		assert.Equal(t, 1, quotes.calls)
	})

	t.Run("storage failure is retried", func(t *testing.T) {
		cause := errors.New("redis down")
		h := NewQuoteRefreshHandler(&fakeRefresher{err: cause}, testutil.DiscardLogger())

		err := h.ProcessTask(context.Background(), task)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("nothing refreshed skips retry", func(t *testing.T) {
		h := NewQuoteRefreshHandler(&fakeRefresher{}, testutil.DiscardLogger())

		err := h.ProcessTask(context.Background(), task)
		assert.ErrorIs(t, err, ErrNothingRefreshed)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("bad payload", func(t *testing.T) {
		quotes := &fakeRefresher{n: 2}
		h := NewQuoteRefreshHandler(quotes, testutil.DiscardLogger())

		err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeQuoteRefresh, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Zero(t, quotes.calls)
	})

	t.Run("empty payload", func(t *testing.T) {
		h := NewQuoteRefreshHandler(&fakeRefresher{n: 1}, testutil.DiscardLogger())
		assert.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeQuoteRefresh, nil)))
	})
}

func TestConversationCleanupHandler(t *testing.T) {
	task, err := jobs.NewConversationCleanupTask(time.Hour)
	require.NoError(t, err)

	sweeper := &fakeSweeper{}
	h := NewConversationCleanupHandler(sweeper, testutil.DiscardLogger())

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, jobs.TaskTypeConversationCleanup, task.Type())
}
