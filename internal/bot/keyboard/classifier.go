package keyboard

// SubMenu identifies the tracked flow a keyboard belongs to. It is always
// derived from the rendered layout, never stored.
type SubMenu string

const (
	SubMenuBuy  SubMenu = "buy"
	SubMenuSell SubMenu = "sell"
)

var sentinels = map[Action]SubMenu{
	ActionSendBuyTx:  SubMenuBuy,
	ActionSendSellTx: SubMenuSell,
}

// Classify reads the sentinel (last button of the last row) and names the
// sub-menu. ok is false for empty layouts and unknown sentinels; callers treat
// that as "not part of a tracked flow".
func Classify(layout Layout) (SubMenu, bool) {
	last, ok := layout.Last()
	if !ok {
		return "", false
	}

	sub, ok := sentinels[Decode(last.Text)]
	return sub, ok
}

// IsSentinel reports whether action only exists to name a sub-menu.
func IsSentinel(action Action) bool {
	_, ok := sentinels[action]
	return ok
}

// Menu returns the menu that renders this sub-menu.
func (s SubMenu) Menu() Menu {
	switch s {
	case SubMenuBuy:
		return MenuBuy
	case SubMenuSell:
		return MenuSell
	default:
		return ""
	}
}
