package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/testutil"
)

type fakeAPI struct {
	mu       sync.Mutex
	methods  []string
	payloads []map[string]any
	failures map[string]string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.payloads = append(f.payloads, payload)
	failure := f.failures[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failure != "" {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"` + failure + `"}`))
		return
	}

	switch method {
	case "sendMessage", "editMessageText":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":1,"type":"private"},"text":"x"}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func newTestTransport(t *testing.T, api *fakeAPI) *Telebot {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	bot, err := telebot.NewBot(telebot.Settings{
		URL:     srv.URL,
		Token:   "test-token",
		Offline: true,
	})
	require.NoError(t, err)

	return NewTelebot(bot, testutil.DiscardLogger())
}

func TestTelebot_SendReturnsMessageID(t *testing.T) {
	api := &fakeAPI{}
	tr := newTestTransport(t, api)

	layout := keyboard.Layout{{{Text: "Buy", Token: "Buy"}}}
	id, err := tr.Send(context.Background(), 1, "hello", layout)
	require.NoError(t, err)

	assert.Equal(t, 77, id)
	assert.Equal(t, []string{"sendMessage"}, api.methods)
	assert.Equal(t, "MarkdownV2", api.payloads[0]["parse_mode"])
	assert.Contains(t, api.payloads[0]["reply_markup"], `"callback_data":"Buy"`)
}

func TestTelebot_EditNotModifiedIsSuccess(t *testing.T) {
	api := &fakeAPI{failures: map[string]string{
		"editMessageText": "Bad Request: message is not modified: specified new message content and reply markup are exactly the same",
	}}
	tr := newTestTransport(t, api)

	assert.NoError(t, tr.Edit(context.Background(), 1, 10, "same", nil))
}

func TestTelebot_DeleteFailureIsTransportError(t *testing.T) {
	api := &fakeAPI{failures: map[string]string{"deleteMessage": "Bad Request: message to delete not found"}}
	tr := newTestTransport(t, api)

	err := tr.Delete(context.Background(), 1, 10)
	assert.Equal(t, apperrors.CodeTransport, apperrors.CodeOf(err))
}

func TestTelebot_Answer(t *testing.T) {
	api := &fakeAPI{}
	tr := newTestTransport(t, api)

	require.NoError(t, tr.Answer(context.Background(), "cb-1", "Limit Buy is not yet supported."))
	require.NoError(t, tr.Answer(context.Background(), "", "ignored"))

	assert.Equal(t, []string{"answerCallbackQuery"}, api.methods)
	assert.Equal(t, "cb-1", api.payloads[0]["callback_query_id"])
}

func TestTelebot_RejectsOversizedToken(t *testing.T) {
	api := &fakeAPI{}
	tr := newTestTransport(t, api)

	layout := keyboard.Layout{{{Text: "x", Token: strings.Repeat("a", keyboard.CallbackDataLimitBytes+1)}}}
	_, err := tr.Send(context.Background(), 1, "hello", layout)

	assert.Equal(t, apperrors.CodeConstruction, apperrors.CodeOf(err))
	assert.Empty(t, api.methods)
}

func TestTelebot_CancelledContext(t *testing.T) {
	api := &fakeAPI{}
	tr := newTestTransport(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tr.Delete(ctx, 1, 1), context.Canceled)
	assert.Empty(t, api.methods)
}
