package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/state"
)

// Dialogue handles free text while a conversation is capturing input.
type Dialogue struct {
	menus *Menus
	fsm   state.StateMachine
	log   *slog.Logger
}

func NewDialogue(menus *Menus, fsm state.StateMachine, log *slog.Logger) *Dialogue {
	if log == nil {
		log = slog.Default()
	}
	return &Dialogue{menus: menus, fsm: fsm, log: log}
}

// CaptureAddress validates the reply to the address prompt. A valid address
// is written into the pending buy menu in place, the conversation returns to
// Idle and the prompt and replies are pruned. Invalid input keeps the
// conversation waiting, with no limit on attempts.
func (d *Dialogue) CaptureAddress(ctx context.Context, ev *Event) error {
	texts := d.menus.texts

	if ev.Kind == KindMedia || ev.Text == "" {
		_, err := d.menus.Notify(ctx, ev.ChatID, texts.T(i18n.KeyPlainText))
		return err
	}

	address, err := state.ValidateAddress(ev.Text)
	if err != nil {
		return d.reject(ctx, ev)
	}

	conv, err := d.fsm.Get(ctx, ev.ChatID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	if sub, ok := keyboard.Classify(conv.MenuLayout); !ok || sub != keyboard.SubMenuBuy {
		d.log.InfoContext(ctx, "address captured without a pending buy menu", slog.Int64("chat_id", ev.ChatID))
		if err := d.fsm.Reset(ctx, ev.ChatID); err != nil {
			return apperrors.NewStorageError(err)
		}
		_, err := d.menus.Notify(ctx, ev.ChatID, texts.T(i18n.KeyMenuExpired))
		return err
	}

	layout, err := conv.MenuLayout.WithLabel(keyboard.ActionBuyToken, keyboard.TokenLabel(address))
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}

	menuID := conv.MenuMessageID
	if err := d.menus.tr.Edit(ctx, ev.ChatID, menuID, d.menus.Body(ctx), layout); err != nil {
		return err
	}

	_, err = d.fsm.Update(ctx, ev.ChatID, func(c *state.Conversation) error {
		c.State = state.StateIdle
		c.RememberMenu(menuID, layout)
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	d.log.InfoContext(ctx, "token address captured",
		slog.Int64("chat_id", ev.ChatID),
		slog.String("address", address),
	)

	// everything after the menu up to and including this reply
	if window := ev.MessageID - menuID; window > 0 {
		d.menus.pruner.Prune(ctx, ev.ChatID, ev.MessageID+1, window)
	}
	return nil
}

func (d *Dialogue) reject(ctx context.Context, ev *Event) error {
	_, err := d.fsm.Update(ctx, ev.ChatID, func(c *state.Conversation) error {
		c.Attempts++
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	_, err = d.menus.Notify(ctx, ev.ChatID, d.menus.texts.T(i18n.KeyInvalidAddress))
	return err
}
