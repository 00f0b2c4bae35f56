package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/Proton-105/koi-bot/pkg/metrics"
)

// topLevel labels callbacks that are dispatched without classifying the layout.
const topLevel = "top"

// CallbackDispatcher routes button taps. Actions that mean the same thing on
// every menu are matched first; everything else is dispatched by the
// (sub-menu, action) pair read from the tapped keyboard.
type CallbackDispatcher struct {
	top map[keyboard.Action]handlers.Handler
	sub map[keyboard.SubMenu]map[keyboard.Action]handlers.Handler
	log *slog.Logger
}

func NewCallbackDispatcher(cb *handlers.Callbacks, log *slog.Logger) *CallbackDispatcher {
	if log == nil {
		log = slog.Default()
	}

	d := &CallbackDispatcher{
		top: map[keyboard.Action]handlers.Handler{
			keyboard.ActionMainMenu:  cb.MainMenu,
			keyboard.ActionClose:     cb.Close,
			keyboard.ActionBuy:       cb.Buy,
			keyboard.ActionSell:      cb.Sell,
			keyboard.ActionLimitBuy:  cb.NotSupported(keyboard.ActionLimitBuy.String()),
			keyboard.ActionLimitSell: cb.NotSupported(keyboard.ActionLimitSell.String()),
		},
		sub: map[keyboard.SubMenu]map[keyboard.Action]handlers.Handler{
			keyboard.SubMenuBuy: {
				keyboard.ActionPrivateTx: cb.Toggle,
				keyboard.ActionRebate:    cb.Toggle,
				keyboard.ActionWallet1:   cb.Wallet,
				keyboard.ActionWallet2:   cb.Wallet,
				keyboard.ActionWallet3:   cb.Wallet,
				keyboard.ActionBuyToken:  cb.BuyToken,
				keyboard.ActionSendBuyTx: cb.SendBuyTx,
			},
		},
		log: log,
	}

	sell := cb.NotSupported(keyboard.ActionSell.String())
	sellActions := map[keyboard.Action]handlers.Handler{
		keyboard.ActionWallet1:    sell,
		keyboard.ActionWallet2:    sell,
		keyboard.ActionWallet3:    sell,
		keyboard.ActionSendSellTx: sell,
	}
	for _, asset := range keyboard.SellAssets() {
		sellActions[keyboard.Other(asset)] = sell
	}
	d.sub[keyboard.SubMenuSell] = sellActions

	return d
}

// Dispatch runs the handler bound to the tapped button. Taps that match
// nothing are logged and dropped.
func (d *CallbackDispatcher) Dispatch(ctx context.Context, ev *handlers.Event) error {
	action := ev.Action()

	if h, ok := d.top[action]; ok {
		metrics.RecordCallback(topLevel, action.String())
		return h(ctx, ev)
	}

	sub, ok := keyboard.Classify(ev.Layout)
	if !ok {
		d.log.DebugContext(ctx, "callback outside a tracked menu",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("action", action.String()),
		)
		return nil
	}

	h, ok := d.sub[sub][action]
	if !ok {
		d.log.InfoContext(ctx, "unrecognized callback dropped",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("submenu", string(sub)),
			slog.String("action", action.String()),
		)
		return nil
	}

	metrics.RecordCallback(string(sub), action.String())
	return h(ctx, ev)
}

// Dispatcher routes free text and media by the conversation's dialogue state.
type Dispatcher struct {
	fsm           state.StateMachine
	stateHandlers map[state.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:           fsm,
		stateHandlers: make(map[state.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Dispatch routes the event based on the conversation's current state.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *handlers.Event) error {
	conv, err := d.fsm.Get(ctx, ev.ChatID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	handler := d.getHandler(conv.State)
	if handler == nil {
		d.log.DebugContext(ctx, "no handler registered for state",
			slog.String("state", string(conv.State)),
			slog.Int64("chat_id", ev.ChatID),
		)
		return nil
	}

	return handler(ctx, ev)
}

func (d *Dispatcher) getHandler(s state.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
