package state

import (
	"time"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

// State represents a dialogue state.
type State string

const (
	// StateIdle is both the initial and the resting state.
	StateIdle State = "idle"
	// StateAwaitingAddress waits for the user to paste a token address.
	StateAwaitingAddress State = "awaiting_address"
	// StateAwaitingTokenName is reserved; it behaves exactly like StateAwaitingAddress.
	StateAwaitingTokenName State = "awaiting_token_name"
)

// CapturesAddress reports whether free text in this state is read as a token address.
func (s State) CapturesAddress() bool {
	return s == StateAwaitingAddress || s == StateAwaitingTokenName
}

// Conversation is the per-chat dialogue record.
type Conversation struct {
	ChatID int64 `json:"chat_id"`
	State  State `json:"state"`
	// MenuMessageID is the most recently rendered menu message.
	MenuMessageID int             `json:"menu_message_id,omitempty"`
	MenuLayout    keyboard.Layout `json:"menu_layout,omitempty"`
	// Attempts counts rejected inputs in the current capture. It is informational only.
	Attempts  int       `json:"attempts,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation returns the default record for a chat seen for the first time.
func NewConversation(chatID int64) *Conversation {
	return &Conversation{ChatID: chatID, State: StateIdle}
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}

	out := *c
	out.MenuLayout = c.MenuLayout.Clone()
	return &out
}

// RememberMenu records the menu message the next prune or in-place edit targets.
func (c *Conversation) RememberMenu(messageID int, layout keyboard.Layout) {
	c.MenuMessageID = messageID
	c.MenuLayout = layout.Clone()
}

// ForgetMenu drops the pending menu reference.
func (c *Conversation) ForgetMenu() {
	c.MenuMessageID = 0
	c.MenuLayout = nil
}
