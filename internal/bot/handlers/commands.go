package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/state"
)

// Command names.
const (
	CommandStart   = "/start"
	CommandMenu    = "/menu"
	CommandHelp    = "/help"
	CommandCancel  = "/cancel"
	CommandWallets = "/wallets"
	CommandHistory = "/history"
)

// Commands implements the slash commands.
type Commands struct {
	menus *Menus
	fsm   state.StateMachine
	log   *slog.Logger
}

func NewCommands(menus *Menus, fsm state.StateMachine, log *slog.Logger) *Commands {
	if log == nil {
		log = slog.Default()
	}
	return &Commands{menus: menus, fsm: fsm, log: log}
}

// Table maps every command to its handler.
func (c *Commands) Table() map[string]Handler {
	return map[string]Handler{
		CommandStart:   c.Start,
		CommandMenu:    c.Menu,
		CommandHelp:    c.Help,
		CommandCancel:  c.Cancel,
		CommandWallets: c.notSupported("Wallets"),
		CommandHistory: c.notSupported("History"),
	}
}

// Start greets the user and opens the main menu.
func (c *Commands) Start(ctx context.Context, ev *Event) error {
	if _, err := c.menus.Notify(ctx, ev.ChatID, c.menus.texts.T(i18n.KeyWelcome)); err != nil {
		return err
	}
	_, err := c.menus.Open(ctx, ev.ChatID, keyboard.MenuMain, 0)
	return err
}

// Menu opens the main menu and prunes the chat above it.
func (c *Commands) Menu(ctx context.Context, ev *Event) error {
	_, err := c.menus.Open(ctx, ev.ChatID, keyboard.MenuMain, c.menus.windows.Command)
	return err
}

func (c *Commands) Help(ctx context.Context, ev *Event) error {
	_, err := c.menus.Notify(ctx, ev.ChatID, c.menus.texts.T(i18n.KeyHelp))
	return err
}

// Cancel aborts a running dialogue. The pending menu is kept.
func (c *Commands) Cancel(ctx context.Context, ev *Event) error {
	conv, err := c.fsm.Get(ctx, ev.ChatID)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	key := i18n.KeyNothingToCancel
	if conv.State != state.StateIdle {
		if err := c.fsm.Reset(ctx, ev.ChatID); err != nil {
			return apperrors.NewStorageError(err)
		}
		key = i18n.KeyCancelled
	}

	_, err = c.menus.Notify(ctx, ev.ChatID, c.menus.texts.T(key))
	return err
}

func (c *Commands) notSupported(feature string) Handler {
	return func(ctx context.Context, ev *Event) error {
		_, err := c.menus.Notify(ctx, ev.ChatID, c.menus.texts.Tf(i18n.KeyNotSupported, feature))
		return err
	}
}
