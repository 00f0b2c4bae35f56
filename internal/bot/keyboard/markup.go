package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// CallbackDataLimitBytes is Telegram's limit for inline button callback data.
const CallbackDataLimitBytes = 64

// ToMarkup renders a layout as telebot inline markup. Every token must fit the
// callback data limit.
func ToMarkup(layout Layout) (*telebot.ReplyMarkup, error) {
	if layout == nil {
		return nil, nil
	}

	inline := make([][]telebot.InlineButton, len(layout))
	for i, row := range layout {
		inline[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			if len(btn.Token) > CallbackDataLimitBytes {
				return nil, fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(btn.Token))
			}
			inline[i][j] = telebot.InlineButton{
				Text: btn.Text,
				Data: btn.Token,
			}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inline}, nil
}

// FromMarkup reads the layout attached to an inbound message. A nil or
// non-inline markup yields an empty layout.
func FromMarkup(markup *telebot.ReplyMarkup) Layout {
	if markup == nil || len(markup.InlineKeyboard) == 0 {
		return nil
	}

	layout := make(Layout, len(markup.InlineKeyboard))
	for i, row := range markup.InlineKeyboard {
		layout[i] = make([]Button, len(row))
		for j, btn := range row {
			layout[i][j] = Button{Text: btn.Text, Token: btn.Data}
		}
	}
	return layout
}
