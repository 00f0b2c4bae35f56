package bot

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/quote"
	"github.com/Proton-105/koi-bot/internal/ratelimit"
	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/Proton-105/koi-bot/internal/testutil"
	"github.com/Proton-105/koi-bot/internal/transport"
	"github.com/Proton-105/koi-bot/internal/transport/transporttest"
	"github.com/Proton-105/koi-bot/pkg/config"
)

const testChat int64 = 7

type staticQuotes struct{}

func (staticQuotes) Snapshot(context.Context) []quote.Quote {
	return []quote.Quote{
		{Network: quote.Ethereum, BlockHeight: 1, GasPrice: big.NewInt(1_000_000_000)},
		{Network: quote.Polygon, BlockHeight: 2, GasPrice: big.NewInt(2_000_000_000)},
	}
}

type harness struct {
	rec    *transporttest.Recorder
	fsm    state.StateMachine
	router *Router
	texts  i18n.Translator
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()

	log := testutil.DiscardLogger()
	rec := transporttest.NewRecorder(100)
	fsm := state.NewStateMachine(state.NewMemoryStorage(), log)

	deps := Deps{
		Config: config.Config{
			Pruner: config.PrunerConfig{CommandWindow: 20, CallbackWindow: 10, Order: "newest_first"},
		},
		Log:    log,
		FSM:    fsm,
		Quotes: staticQuotes{},
	}
	if mutate != nil {
		mutate(&deps)
	}

	router, err := NewPipeline(rec, nil, deps)
	require.NoError(t, err)

	return &harness{
		rec:    rec,
		fsm:    fsm,
		router: router,
		texts:  i18n.MustLoad("en").Translator("en"),
	}
}

func (h *harness) command(t *testing.T, text string, messageID int) {
	t.Helper()
	cmd, payload, ok := handlers.ParseCommand(text)
	require.True(t, ok)
	require.NoError(t, h.router.Handle(context.Background(), &handlers.Event{
		Kind: handlers.KindCommand, ChatID: testChat, UserID: testChat, MessageID: messageID,
		Text: text, Command: cmd, Payload: payload,
	}))
}

func (h *harness) text(t *testing.T, text string, messageID int) {
	t.Helper()
	require.NoError(t, h.router.Handle(context.Background(), &handlers.Event{
		Kind: handlers.KindText, ChatID: testChat, UserID: testChat, MessageID: messageID, Text: text,
	}))
}

// tap presses the button bound to action on a message the bot sent.
func (h *harness) tap(t *testing.T, msg transporttest.Call, token string) *handlers.Event {
	t.Helper()
	ev := &handlers.Event{
		Kind:       handlers.KindCallback,
		ChatID:     testChat,
		UserID:     testChat,
		MessageID:  msg.MessageID,
		CallbackID: "cb-" + token,
		Token:      token,
		Layout:     msg.Layout,
	}
	require.NoError(t, h.router.Handle(context.Background(), ev))
	return ev
}

func (h *harness) lastSend(t *testing.T) transporttest.Call {
	t.Helper()
	sent, ok := h.rec.LastSend()
	require.True(t, ok)
	return sent
}

func (h *harness) state(t *testing.T) state.State {
	t.Helper()
	conv, err := h.fsm.Get(context.Background(), testChat)
	require.NoError(t, err)
	return conv.State
}

func TestRouter_BuyFlowEndToEnd(t *testing.T) {
	h := newHarness(t, nil)

	h.command(t, "/menu", 99)
	mainMenu := h.lastSend(t)
	assert.Equal(t, 100, mainMenu.MessageID)
	assert.Len(t, h.rec.Deleted(), 20)
	assert.Equal(t, state.StateIdle, h.state(t))

	h.tap(t, mainMenu, keyboard.ActionBuy.String())
	buyMenu := h.lastSend(t)
	sub, ok := keyboard.Classify(buyMenu.Layout)
	require.True(t, ok)
	assert.Equal(t, keyboard.SubMenuBuy, sub)

	wallet2, _ := buyMenu.Layout.Button(keyboard.ActionWallet2)
	h.tap(t, buyMenu, wallet2.Token)
	edited := h.rec.Filter(transporttest.OpEdit)
	require.Len(t, edited, 1)
	buyMenu.Layout = edited[0].Layout
	assert.True(t, buyMenu.Layout.Selected(keyboard.ActionWallet2))

	h.tap(t, buyMenu, keyboard.ActionBuyToken.String())
	prompt := h.lastSend(t)
	assert.Equal(t, h.texts.T(i18n.KeyPromptAddress), prompt.Text)
	assert.Equal(t, state.StateAwaitingAddress, h.state(t))

	h.rec.SetNextID(prompt.MessageID + 2)
	h.rec.Reset()

	address := "0x" + strings.Repeat("c0", 20)
	h.text(t, address, prompt.MessageID+1)

	edits := h.rec.Filter(transporttest.OpEdit)
	require.Len(t, edits, 1)
	assert.Equal(t, buyMenu.MessageID, edits[0].MessageID)

	order := keyboard.ReadBuyOrder(edits[0].Layout)
	assert.Equal(t, address, order.Token)
	assert.Equal(t, keyboard.ActionWallet2, order.Wallet)
	assert.True(t, order.PrivateTx)

	assert.Equal(t, []int{prompt.MessageID + 1, prompt.MessageID}, h.rec.Deleted())
	assert.Equal(t, state.StateIdle, h.state(t))
}

func TestRouter_AnswersEveryCallbackOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, "/menu", 1)
	mainMenu := h.lastSend(t)
	h.tap(t, mainMenu, keyboard.ActionBuy.String())
	buyMenu := h.lastSend(t)

	testCases := []struct {
		name   string
		msg    transporttest.Call
		token  string
		notice string
	}{
		{name: "top level action", msg: mainMenu, token: keyboard.ActionSell.String()},
		{name: "unsupported", msg: mainMenu, token: keyboard.ActionLimitBuy.String(), notice: "Limit Buy is not yet supported."},
		{name: "unrecognized pair", msg: buyMenu, token: keyboard.ActionReceive.String()},
		{name: "section header", msg: buyMenu, token: keyboard.SelectWalletHeader},
		{name: "outside tracked menu", msg: mainMenu, token: "stale"},
		{name: "sentinel", msg: buyMenu, token: keyboard.ActionSendBuyTx.String(), notice: h.texts.T(i18n.KeyTxNotSupported)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h.rec.Reset()
			h.tap(t, tc.msg, tc.token)

			answers := h.rec.Filter(transporttest.OpAnswer)
			require.Len(t, answers, 1)
			assert.Equal(t, "cb-"+tc.token, answers[0].CallbackID)
			assert.Equal(t, tc.notice, answers[0].Text)
		})
	}
}

func TestRouter_DroppedCallbackChangesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, "/menu", 1)
	h.tap(t, h.lastSend(t), keyboard.ActionBuy.String())
	buyMenu := h.lastSend(t)
	h.rec.Reset()

	h.tap(t, buyMenu, keyboard.ActionBuyAmount.String())

	assert.Empty(t, h.rec.Filter(transporttest.OpSend))
	assert.Empty(t, h.rec.Filter(transporttest.OpEdit))
	assert.Empty(t, h.rec.Deleted())
	assert.Equal(t, state.StateIdle, h.state(t))
}

func TestRouter_SellMenuIsNotSupported(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, "/menu", 1)
	h.tap(t, h.lastSend(t), keyboard.ActionSell.String())
	sellMenu := h.lastSend(t)

	sub, ok := keyboard.Classify(sellMenu.Layout)
	require.True(t, ok)
	require.Equal(t, keyboard.SubMenuSell, sub)

	for _, token := range []string{keyboard.ActionWallet3.String(), "ETH", keyboard.ActionSendSellTx.String()} {
		h.rec.Reset()
		h.tap(t, sellMenu, token)

		answers := h.rec.Filter(transporttest.OpAnswer)
		require.Len(t, answers, 1)
		assert.Equal(t, "Sell is not yet supported.", answers[0].Text)
		assert.Empty(t, h.rec.Filter(transporttest.OpEdit))
	}
}

func TestRouter_IdleTextIsIgnored(t *testing.T) {
	h := newHarness(t, nil)

	h.text(t, "hello", 5)

	assert.Empty(t, h.rec.Calls())
}

func TestRouter_UnknownCommandFallsThroughToDialogue(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, "/menu", 1)
	h.tap(t, h.lastSend(t), keyboard.ActionBuy.String())
	h.tap(t, h.lastSend(t), keyboard.ActionBuyToken.String())
	h.rec.Reset()

	h.command(t, "/unknown", 50)

	sent := h.lastSend(t)
	assert.Equal(t, h.texts.T(i18n.KeyInvalidAddress), sent.Text)
	assert.Equal(t, state.StateAwaitingAddress, h.state(t))
}

func TestRouter_TransportFailureReportedOnCallback(t *testing.T) {
	h := newHarness(t, nil)
	h.command(t, "/menu", 1)
	mainMenu := h.lastSend(t)

	h.rec.FailSend(errors.New("telegram: bad gateway"))
	h.rec.Reset()

	ev := h.tap(t, mainMenu, keyboard.ActionBuy.String())

	assert.Equal(t, h.texts.T(i18n.KeyInternalError), ev.Notice)
	answers := h.rec.Filter(transporttest.OpAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, h.texts.T(i18n.KeyInternalError), answers[0].Text)
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	h := newHarness(t, nil)
	h.router.RegisterCommand("/panic", func(context.Context, *handlers.Event) error {
		panic("boom")
	})

	h.command(t, "/panic", 3)

	sent := h.lastSend(t)
	assert.Equal(t, transport.EscapeMarkdown(h.texts.T(i18n.KeyInternalError)), sent.Text)
}

func TestRouter_RateLimited(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Limiter = ratelimit.NewMemoryLimiter(testutil.DiscardLogger())
		d.Config.RateLimit = config.RateLimitConfig{
			Enabled: true,
			PerUser: config.RateLimitRule{Limit: 1, Window: "1m"},
		}
	})

	h.command(t, "/help", 1)
	h.rec.Reset()
	h.command(t, "/help", 2)

	sent := h.lastSend(t)
	assert.Contains(t, sent.Text, "Too many requests")
	assert.Nil(t, sent.Layout)
}

func TestRouter_RouteQueuesPerChat(t *testing.T) {
	log := testutil.DiscardLogger()
	rec := transporttest.NewRecorder(1)
	seq := NewSequencer(log)

	router, err := NewPipeline(rec, seq, Deps{
		Config: config.Config{Pruner: config.PrunerConfig{Order: "newest_first"}},
		Log:    log,
		FSM:    state.NewStateMachine(nil, log),
	})
	require.NoError(t, err)

	tb := offlineBot(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, router.Route(tb.NewContext(textUpdate(i+1, testChat, "/help"))))
	}
	require.NoError(t, seq.Close(context.Background()))

	assert.Len(t, rec.Filter(transporttest.OpSend), 3)
}

func TestNewPipeline_RequiresStateMachine(t *testing.T) {
	_, err := NewPipeline(transporttest.NewRecorder(1), nil, Deps{})
	assert.Error(t, err)
}
