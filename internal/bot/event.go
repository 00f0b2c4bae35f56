package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

// NewEvent converts a telebot update into a handlers.Event. ok is false for
// updates the bot does not react to, such as channel posts or edits.
func NewEvent(c telebot.Context) (*handlers.Event, bool) {
	if c == nil {
		return nil, false
	}

	ev := &handlers.Event{UpdateID: c.Update().ID}
	if sender := c.Sender(); sender != nil {
		ev.UserID = sender.ID
	}

	if cb := c.Callback(); cb != nil {
		ev.Kind = handlers.KindCallback
		ev.CallbackID = cb.ID
		ev.Token = cb.Data
		if msg := cb.Message; msg != nil {
			ev.MessageID = msg.ID
			ev.Layout = keyboard.FromMarkup(msg.ReplyMarkup)
			if msg.Chat != nil {
				ev.ChatID = msg.Chat.ID
			}
		}
		return ev, true
	}

	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return nil, false
	}

	ev.ChatID = msg.Chat.ID
	ev.MessageID = msg.ID
	ev.Text = msg.Text

	switch cmd, payload, ok := handlers.ParseCommand(msg.Text); {
	case ok:
		ev.Kind = handlers.KindCommand
		ev.Command = cmd
		ev.Payload = payload
	case msg.Text == "":
		ev.Kind = handlers.KindMedia
	default:
		ev.Kind = handlers.KindText
	}
	return ev, true
}
