package handlers

import (
	"context"
	"strings"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

// Kind classifies an inbound event.
type Kind int

const (
	KindText Kind = iota
	KindCommand
	KindCallback
	// KindMedia is a message without text (photo, sticker, document...).
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCommand:
		return "command"
	case KindCallback:
		return "callback"
	case KindMedia:
		return "media"
	default:
		return "unknown"
	}
}

// Event is an inbound update with the transport details stripped away.
type Event struct {
	Kind     Kind
	UpdateID int
	ChatID   int64
	UserID   int64
	// MessageID is the user's message for text, command and media events and
	// the originating bot message for callbacks.
	MessageID int
	Text      string
	// Command is the command name including the slash, e.g. "/menu".
	Command string
	Payload string

	CallbackID string
	Token      string
	// Layout is the keyboard attached to the originating message.
	Layout keyboard.Layout

	// Notice is sent along with the callback acknowledgement.
	Notice string
}

// Action decodes the callback token.
func (e *Event) Action() keyboard.Action {
	return keyboard.Decode(e.Token)
}

// ParseCommand splits "/cmd@bot payload" into "/cmd" and "payload".
func ParseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	cmd, payload, _ := strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(payload), true
}

// Handler processes one event.
type Handler func(ctx context.Context, ev *Event) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	if h == nil {
		return nil
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			h = middlewares[i](h)
		}
	}
	return h
}
