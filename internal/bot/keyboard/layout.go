package keyboard

import (
	"errors"
	"fmt"
)

// ErrButtonNotFound is returned when a layout has no button for the requested action.
var ErrButtonNotFound = errors.New("button not found in layout")

// Button is a rendered inline button. Token is the callback payload Telegram
// echoes back on tap; stateful buttons keep Text and Token identical so the
// selected state survives the round trip.
type Button struct {
	Text  string `json:"text"`
	Token string `json:"token"`
}

// Action decodes the button's callback token.
func (b Button) Action() Action {
	return Decode(b.Token)
}

// Layout is an ordered grid of buttons.
type Layout [][]Button

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	if l == nil {
		return nil
	}

	out := make(Layout, len(l))
	for i, row := range l {
		out[i] = make([]Button, len(row))
		copy(out[i], row)
	}
	return out
}

// Empty reports whether the layout has no buttons at all.
func (l Layout) Empty() bool {
	for _, row := range l {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// Last returns the last button of the last row.
func (l Layout) Last() (Button, bool) {
	if len(l) == 0 {
		return Button{}, false
	}

	row := l[len(l)-1]
	if len(row) == 0 {
		return Button{}, false
	}

	return row[len(row)-1], true
}

// Find locates the first button whose token decodes to action.
func (l Layout) Find(action Action) (row, col int, ok bool) {
	for i, r := range l {
		for j, btn := range r {
			if btn.Action() == action {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// Button returns the button bound to action.
func (l Layout) Button(action Action) (Button, bool) {
	i, j, ok := l.Find(action)
	if !ok {
		return Button{}, false
	}
	return l[i][j], true
}

// Selected reports whether the button bound to action is rendered in its selected form.
func (l Layout) Selected(action Action) bool {
	btn, ok := l.Button(action)
	if !ok {
		return false
	}

	_, selected := Parse(btn.Token)
	return selected
}

// Toggles reads the selected state of every decoratable stateful button.
func (l Layout) Toggles() map[Action]bool {
	toggles := make(map[Action]bool)
	for _, row := range l {
		for _, btn := range row {
			action, selected := Parse(btn.Token)
			if !action.Decoratable() || isFixed(action) {
				continue
			}
			toggles[action] = selected
		}
	}
	return toggles
}

// WithSelected returns a copy of the layout with the action's button
// re-rendered in the requested state.
func (l Layout) WithSelected(action Action, selected bool) (Layout, error) {
	i, j, ok := l.Find(action)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrButtonNotFound, action)
	}

	out := l.Clone()
	out[i][j] = stateful(action, selected)
	return out, nil
}

// WithToggled flips the selected state of the action's button.
func (l Layout) WithToggled(action Action) (Layout, error) {
	return l.WithSelected(action, !l.Selected(action))
}

// WithWallet selects exactly one wallet and clears the others present in the layout.
func (l Layout) WithWallet(wallet Action) (Layout, error) {
	if !IsWallet(wallet) {
		return nil, fmt.Errorf("%w: %s is not a wallet", ErrInvalidWalletSelection, wallet)
	}

	out := l.Clone()
	found := false
	for _, w := range wallets {
		i, j, ok := out.Find(w)
		if !ok {
			continue
		}
		if w == wallet {
			found = true
		}
		out[i][j] = stateful(w, w == wallet)
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrButtonNotFound, wallet)
	}
	return out, nil
}

// WithLabel returns a copy of the layout with the action's label replaced. The
// callback token is left untouched so the button still decodes to action.
func (l Layout) WithLabel(action Action, label string) (Layout, error) {
	i, j, ok := l.Find(action)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrButtonNotFound, action)
	}

	out := l.Clone()
	out[i][j].Text = label
	return out, nil
}

// Label returns the label currently shown for action.
func (l Layout) Label(action Action) string {
	btn, ok := l.Button(action)
	if !ok {
		return ""
	}
	return btn.Text
}

func stateful(action Action, selected bool) Button {
	text := Encode(action, selected)
	return Button{Text: text, Token: text}
}

// fixed renders a permanently decorated label over a plain token.
func fixed(action Action) Button {
	return Button{Text: Encode(action, true), Token: string(action)}
}

func plain(text string) Button {
	return Button{Text: text, Token: text}
}

func isFixed(action Action) bool {
	return action == ActionMainMenu || action == ActionClose
}
