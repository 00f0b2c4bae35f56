package errors

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/koi-bot/internal/testutil"
)

func TestConstructors(t *testing.T) {
	cause := stdErrors.New("boom")

	testCases := []struct {
		name      string
		err       *AppError
		code      string
		severity  Severity
		retryable bool
	}{
		{name: "validation", err: NewValidationError("Please enter valid address"), code: CodeValidation, severity: SeverityLow},
		{name: "storage", err: NewStorageError(cause), code: CodeStorage, severity: SeverityHigh, retryable: true},
		{name: "external api", err: NewExternalAPIError("ethereum", cause), code: CodeExternalAPI, severity: SeverityMedium, retryable: true},
		{name: "state", err: NewStateError("bad state"), code: CodeState, severity: SeverityMedium},
		{name: "rate limit", err: NewRateLimitError(3), code: CodeRateLimit, severity: SeverityLow},
		{name: "transport", err: NewTransportError("edit", cause), code: CodeTransport, severity: SeverityMedium},
		{name: "construction", err: NewConstructionError(cause), code: CodeConstruction, severity: SeverityCritical},
		{name: "not supported", err: NewNotSupportedError("Limit Buy"), code: CodeNotSupported, severity: SeverityLow},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.severity, tc.err.Severity)
			assert.Equal(t, tc.retryable, tc.err.Retryable)
			assert.NotEmpty(t, tc.err.UserMessage)
			assert.Equal(t, tc.code, CodeOf(tc.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stdErrors.New("message can't be edited")
	err := NewTransportError("edit", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "message can't be edited")
	assert.Equal(t, "", CodeOf(cause))
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(testutil.DiscardLogger(), false)

	msg, retryable := h.Handle(context.Background(), NewValidationError("Please enter valid address"))
	assert.Equal(t, "Please enter valid address", msg)
	assert.False(t, retryable)

	msg, retryable = h.Handle(context.Background(), NewStorageError(stdErrors.New("redis down")))
	assert.Equal(t, "Temporary problem, please try again later.", msg)
	assert.True(t, retryable)

	msg, retryable = h.Handle(context.Background(), stdErrors.New("plain"))
	assert.Equal(t, DefaultUserMessage, msg)
	assert.False(t, retryable)

	msg, _ = h.Handle(context.Background(), nil)
	assert.Empty(t, msg)
}

func TestRetryPolicy_Do(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}

	t.Run("retries retryable errors", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return NewExternalAPIError("polygon", stdErrors.New("timeout"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non retryable", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return NewValidationError("bad")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return NewExternalAPIError("ethereum", nil)
		})
		assert.Equal(t, CodeExternalAPI, CodeOf(err))
		assert.Equal(t, 4, calls)
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := policy.Do(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(WithMinRequests(2), WithCooldown(time.Minute))
	cb.now = func() time.Time { return now }

	failing := func() error { return stdErrors.New("rpc down") }

	assert.Error(t, cb.Call(failing))
	assert.Error(t, cb.Call(failing))
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	for i := 0; i < HalfOpenMaxRequests; i++ {
		require.NoError(t, cb.Call(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
