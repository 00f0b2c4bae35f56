package graceful

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_StopsOnCancel(t *testing.T) {
	srv := NewServer(discard(), "127.0.0.1:0", http.NotFoundHandler(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	srv := NewServer(discard(), "invalid-address", http.NotFoundHandler(), 0)

	err := srv.ListenAndServe(context.Background())
	require.Error(t, err)
	assert.Equal(t, "invalid-address", srv.Addr())
}
