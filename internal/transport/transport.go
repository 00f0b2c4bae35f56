// Package transport is the outbound side of the chat provider: sending,
// editing and deleting messages and acknowledging callbacks.
package transport

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
)

// Transport is the set of remote calls the bot makes. Every call may fail
// transiently; callers decide whether a failure matters.
type Transport interface {
	// Send posts a new message and returns its id.
	Send(ctx context.Context, chatID int64, text string, layout keyboard.Layout) (int, error)
	// Edit replaces the text and keyboard of an existing message in place.
	Edit(ctx context.Context, chatID int64, messageID int, text string, layout keyboard.Layout) error
	// Delete removes a message.
	Delete(ctx context.Context, chatID int64, messageID int) error
	// Answer acknowledges a callback query, optionally with a short notice.
	Answer(ctx context.Context, callbackID, text string) error
}

// Telebot implements Transport on top of a telebot.Bot.
type Telebot struct {
	bot       *telebot.Bot
	parseMode telebot.ParseMode
	log       *slog.Logger
}

// NewTelebot wraps bot. Message bodies are sent as MarkdownV2.
func NewTelebot(bot *telebot.Bot, log *slog.Logger) *Telebot {
	if log == nil {
		log = slog.Default()
	}

	return &Telebot{
		bot:       bot,
		parseMode: telebot.ModeMarkdownV2,
		log:       log,
	}
}

func (t *Telebot) Send(ctx context.Context, chatID int64, text string, layout keyboard.Layout) (int, error) {
	opts, err := t.options(layout)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg, err := t.bot.Send(telebot.ChatID(chatID), text, opts...)
	if err != nil {
		t.log.Warn("send message failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return 0, apperrors.NewTransportError("send", err)
	}

	return msg.ID, nil
}

func (t *Telebot) Edit(ctx context.Context, chatID int64, messageID int, text string, layout keyboard.Layout) error {
	opts, err := t.options(layout)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.bot.Edit(stored(chatID, messageID), text, opts...); err != nil {
		// re-rendering an unchanged menu is not a failure
		if isNotModified(err) {
			return nil
		}
		t.log.Warn("edit message failed",
			slog.Int64("chat_id", chatID),
			slog.Int("message_id", messageID),
			slog.Any("error", err),
		)
		return apperrors.NewTransportError("edit", err)
	}

	return nil
}

func (t *Telebot) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.bot.Delete(stored(chatID, messageID)); err != nil {
		return apperrors.NewTransportError("delete", err)
	}
	return nil
}

func (t *Telebot) Answer(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	resp := &telebot.CallbackResponse{Text: text}
	if err := t.bot.Respond(&telebot.Callback{ID: callbackID}, resp); err != nil {
		t.log.Warn("answer callback failed", slog.String("callback_id", callbackID), slog.Any("error", err))
		return apperrors.NewTransportError("answer", err)
	}
	return nil
}

func (t *Telebot) options(layout keyboard.Layout) ([]interface{}, error) {
	opts := []interface{}{t.parseMode}

	markup, err := keyboard.ToMarkup(layout)
	if err != nil {
		return nil, apperrors.NewConstructionError(err)
	}
	if markup != nil {
		opts = append(opts, markup)
	}

	return opts, nil
}

func stored(chatID int64, messageID int) telebot.StoredMessage {
	return telebot.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}
