package keyboard

// Action is the logical identity of a button, independent of how it is rendered.
type Action string

// Known actions. The value is the canonical plain text of the button.
const (
	ActionSendBuyTx               Action = "Send Buy Tx"
	ActionSendSellTx              Action = "Send Sell Tx"
	ActionMainMenu                Action = "Main Menu"
	ActionClose                   Action = "Close"
	ActionPrivateTx               Action = "Private Tx"
	ActionRebate                  Action = "Rebate"
	ActionWallet1                 Action = "Wallet 1"
	ActionWallet2                 Action = "Wallet 2"
	ActionWallet3                 Action = "Wallet 3"
	ActionBuy                     Action = "Buy"
	ActionReceive                 Action = "Receives"
	ActionBuyAmount               Action = "Buy Amount"
	ActionEstimatedReceivedAmount Action = "Estimated Received Amount"
	ActionBuyToken                Action = "Buy Token"
	ActionSell                    Action = "Sell"
	ActionLimitBuy                Action = "Limit Buy"
	ActionLimitSell               Action = "Limit Sell"
)

// Glyphs prepended to a label when its action is selected.
const (
	glyphHome    = "🏠 "
	glyphClose   = "❌ "
	glyphEnabled = "✅ "
)

var knownActions = []Action{
	ActionSendBuyTx,
	ActionSendSellTx,
	ActionMainMenu,
	ActionClose,
	ActionPrivateTx,
	ActionRebate,
	ActionWallet1,
	ActionWallet2,
	ActionWallet3,
	ActionBuy,
	ActionReceive,
	ActionBuyAmount,
	ActionEstimatedReceivedAmount,
	ActionBuyToken,
	ActionSell,
	ActionLimitBuy,
	ActionLimitSell,
}

// decorations lists the actions that have a selected rendering. Actions missing
// from the table always render plain.
var decorations = map[Action]string{
	ActionMainMenu:  glyphHome,
	ActionClose:     glyphClose,
	ActionPrivateTx: glyphEnabled,
	ActionRebate:    glyphEnabled,
	ActionWallet1:   glyphEnabled,
	ActionWallet2:   glyphEnabled,
	ActionWallet3:   glyphEnabled,
}

// lookup maps every accepted rendering (plain and decorated) to its action.
var lookup = buildLookup()

type rendering struct {
	action   Action
	selected bool
}

func buildLookup() map[string]rendering {
	table := make(map[string]rendering, len(knownActions)*2)
	for _, action := range knownActions {
		table[string(action)] = rendering{action: action}
		if glyph, ok := decorations[action]; ok {
			table[glyph+string(action)] = rendering{action: action, selected: true}
		}
	}
	return table
}

// Other wraps text that does not name a known action, such as section headers or amounts.
func Other(text string) Action {
	return Action(text)
}

// IsOther reports whether the action falls outside the known action set.
func (a Action) IsOther() bool {
	r, ok := lookup[string(a)]
	return !ok || r.selected
}

// Decoratable reports whether the action has a selected rendering.
func (a Action) Decoratable() bool {
	_, ok := decorations[a]
	return ok
}

// String returns the canonical plain text.
func (a Action) String() string {
	return string(a)
}

// Encode renders an action. Selected decoratable actions get their glyph; all
// others render as plain text regardless of selected.
func Encode(a Action, selected bool) string {
	if !selected {
		return string(a)
	}
	if glyph, ok := decorations[a]; ok {
		return glyph + string(a)
	}
	return string(a)
}

// Decode resolves rendered text back to an action. Plain and decorated forms map
// to the same action; unknown text yields Other(text).
func Decode(text string) Action {
	action, _ := Parse(text)
	return action
}

// Parse is Decode that also reports whether the text was the decorated form.
func Parse(text string) (Action, bool) {
	if r, ok := lookup[text]; ok {
		return r.action, r.selected
	}
	return Other(text), false
}

// Actions returns the known action set.
func Actions() []Action {
	out := make([]Action, len(knownActions))
	copy(out, knownActions)
	return out
}
