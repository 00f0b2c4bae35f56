package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/pruner"
	"github.com/Proton-105/koi-bot/internal/quote"
	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/Proton-105/koi-bot/internal/transport"
)

// QuoteSource provides the figures rendered in the menu body.
type QuoteSource interface {
	Snapshot(ctx context.Context) []quote.Quote
}

// Windows are the prune window sizes per trigger.
type Windows struct {
	Command  int
	Callback int
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	FSM       state.StateMachine
	Transport transport.Transport
	Keyboard  *keyboard.Builder
	Pruner    *pruner.Pruner
	Quotes    QuoteSource
	Texts     i18n.Translator
	Windows   Windows
	Log       *slog.Logger
}

// Menus renders menus and keeps the pending menu of each conversation.
type Menus struct {
	fsm     state.StateMachine
	tr      transport.Transport
	kb      *keyboard.Builder
	pruner  *pruner.Pruner
	quotes  QuoteSource
	texts   i18n.Translator
	windows Windows
	log     *slog.Logger
}

// NewMenus wires the menu renderer.
func NewMenus(deps Deps) *Menus {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	kb := deps.Keyboard
	if kb == nil {
		kb = keyboard.NewBuilder(log)
	}
	texts := deps.Texts
	if texts == nil {
		texts = i18n.MustLoad("en").Translator("en")
	}

	return &Menus{
		fsm:     deps.FSM,
		tr:      deps.Transport,
		kb:      kb,
		pruner:  deps.Pruner,
		quotes:  deps.Quotes,
		texts:   texts,
		windows: deps.Windows,
		log:     log,
	}
}

// Body renders the menu text from current quotes. Networks that cannot be
// read show as unavailable; rendering never fails.
func (m *Menus) Body(ctx context.Context) string {
	if m.quotes == nil {
		networks := quote.Networks()
		quotes := make([]quote.Quote, len(networks))
		for i, n := range networks {
			quotes[i] = quote.Quote{Network: n, Err: quote.ErrUnsupportedNetwork}
		}
		return quote.Format(quotes)
	}
	return quote.Format(m.quotes.Snapshot(ctx))
}

// Open sends menu as a new message, makes it the pending menu and returns
// the conversation to Idle. When window > 0 the messages before it are pruned.
func (m *Menus) Open(ctx context.Context, chatID int64, menu keyboard.Menu, window int) (int, error) {
	layout, err := m.kb.Build(menu, keyboard.DefaultToggles(menu))
	if err != nil {
		return 0, apperrors.NewConstructionError(err)
	}

	msgID, err := m.tr.Send(ctx, chatID, m.Body(ctx), layout)
	if err != nil {
		return 0, err
	}

	if err := m.remember(ctx, chatID, msgID, layout, true); err != nil {
		return msgID, err
	}

	if window > 0 {
		m.pruner.Prune(ctx, chatID, msgID, window)
	}
	return msgID, nil
}

// Redraw edits messageID in place with layout and makes it the pending menu.
func (m *Menus) Redraw(ctx context.Context, chatID int64, messageID int, layout keyboard.Layout) error {
	if err := m.tr.Edit(ctx, chatID, messageID, m.Body(ctx), layout); err != nil {
		return err
	}
	return m.remember(ctx, chatID, messageID, layout, false)
}

// Notify sends a plain notice. The text is escaped for MarkdownV2.
func (m *Menus) Notify(ctx context.Context, chatID int64, text string) (int, error) {
	return m.tr.Send(ctx, chatID, transport.EscapeMarkdown(text), nil)
}

// Texts exposes the message catalogue.
func (m *Menus) Texts() i18n.Translator {
	return m.texts
}

func (m *Menus) remember(ctx context.Context, chatID int64, messageID int, layout keyboard.Layout, reset bool) error {
	_, err := m.fsm.Update(ctx, chatID, func(conv *state.Conversation) error {
		if reset {
			conv.State = state.StateIdle
		}
		conv.RememberMenu(messageID, layout)
		return nil
	})
	if err != nil {
		m.log.Error("failed to store pending menu",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.Any("error", err),
		)
		return apperrors.NewStorageError(err)
	}
	return nil
}
