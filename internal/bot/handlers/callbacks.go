package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/state"
)

// Callbacks implements the inline button actions.
type Callbacks struct {
	menus *Menus
	fsm   state.StateMachine
	log   *slog.Logger
}

func NewCallbacks(menus *Menus, fsm state.StateMachine, log *slog.Logger) *Callbacks {
	if log == nil {
		log = slog.Default()
	}
	return &Callbacks{menus: menus, fsm: fsm, log: log}
}

// MainMenu sends a fresh main menu and prunes the messages before it.
func (c *Callbacks) MainMenu(ctx context.Context, ev *Event) error {
	_, err := c.menus.Open(ctx, ev.ChatID, keyboard.MenuMain, c.menus.windows.Callback)
	return err
}

// Buy opens the buy sub-menu with default toggles.
func (c *Callbacks) Buy(ctx context.Context, ev *Event) error {
	_, err := c.menus.Open(ctx, ev.ChatID, keyboard.MenuBuy, 0)
	return err
}

// Sell opens the sell sub-menu.
func (c *Callbacks) Sell(ctx context.Context, ev *Event) error {
	_, err := c.menus.Open(ctx, ev.ChatID, keyboard.MenuSell, 0)
	return err
}

// Close deletes the tapped menu and ends any running dialogue.
func (c *Callbacks) Close(ctx context.Context, ev *Event) error {
	if err := c.menus.tr.Delete(ctx, ev.ChatID, ev.MessageID); err != nil {
		return err
	}

	_, err := c.fsm.Update(ctx, ev.ChatID, func(conv *state.Conversation) error {
		conv.State = state.StateIdle
		if conv.MenuMessageID == ev.MessageID {
			conv.ForgetMenu()
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// Toggle flips an on/off button (Private Tx, Rebate) and redraws the menu in place.
func (c *Callbacks) Toggle(ctx context.Context, ev *Event) error {
	layout, err := ev.Layout.WithToggled(ev.Action())
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}
	return c.menus.Redraw(ctx, ev.ChatID, ev.MessageID, layout)
}

// Wallet selects the tapped wallet and clears the others.
func (c *Callbacks) Wallet(ctx context.Context, ev *Event) error {
	layout, err := ev.Layout.WithWallet(ev.Action())
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}
	return c.menus.Redraw(ctx, ev.ChatID, ev.MessageID, layout)
}

// BuyToken prompts for a token address and waits for the reply. The tapped
// menu becomes the pending menu the captured address is written into.
func (c *Callbacks) BuyToken(ctx context.Context, ev *Event) error {
	if _, err := c.menus.Notify(ctx, ev.ChatID, c.menus.texts.T(i18n.KeyPromptAddress)); err != nil {
		return err
	}

	_, err := c.fsm.Update(ctx, ev.ChatID, func(conv *state.Conversation) error {
		conv.State = state.StateAwaitingAddress
		conv.RememberMenu(ev.MessageID, ev.Layout)
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// SendBuyTx reads the order back out of the tapped menu. Submission itself
// is not implemented, so the user only gets a notice.
func (c *Callbacks) SendBuyTx(ctx context.Context, ev *Event) error {
	order := keyboard.ReadBuyOrder(ev.Layout)
	c.log.InfoContext(ctx, "buy order requested",
		slog.Int64("chat_id", ev.ChatID),
		slog.Bool("private_tx", order.PrivateTx),
		slog.Bool("rebate", order.Rebate),
		slog.String("wallet", order.Wallet.String()),
		slog.String("token", order.Token),
	)

	ev.Notice = c.menus.texts.T(i18n.KeyTxNotSupported)
	return nil
}

// NotSupported answers with a "not yet supported" notice for feature.
func (c *Callbacks) NotSupported(feature string) Handler {
	return func(ctx context.Context, ev *Event) error {
		c.log.DebugContext(ctx, "unsupported action",
			slog.Int64("chat_id", ev.ChatID),
			slog.String("feature", feature),
		)
		ev.Notice = c.menus.texts.Tf(i18n.KeyNotSupported, feature)
		return nil
	}
}
