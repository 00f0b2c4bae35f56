package keyboard

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrInvalidWalletSelection is a caller contract violation: a wallet row needs exactly one selected wallet.
var ErrInvalidWalletSelection = errors.New("exactly one wallet must be selected")

// ErrUnknownMenu is returned when Build is asked for a menu it does not know.
var ErrUnknownMenu = errors.New("unknown menu")

// Menu names a keyboard context.
type Menu string

const (
	MenuMain Menu = "main"
	MenuBuy  Menu = "buy"
	MenuSell Menu = "sell"
)

// SelectWalletHeader is the non-dispatchable section header above the wallet row.
const SelectWalletHeader = "=Select Wallet="

const mainMenuPerRow = 3

var wallets = []Action{ActionWallet1, ActionWallet2, ActionWallet3}

var sellAssets = []string{"BTC", "ETH", "LTC", "BCH"}

// IsWallet reports whether action is one of the wallet buttons.
func IsWallet(action Action) bool {
	for _, w := range wallets {
		if w == action {
			return true
		}
	}
	return false
}

// SellAssets returns the asset buttons of the sell menu in display order.
func SellAssets() []string {
	return append([]string(nil), sellAssets...)
}

// Menus returns every menu the builder can render.
func Menus() []Menu {
	return []Menu{MenuMain, MenuBuy, MenuSell}
}

// Builder renders keyboards for the bot's menus.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// DefaultToggles returns the toggle state a freshly opened menu starts with.
func DefaultToggles(menu Menu) map[Action]bool {
	switch menu {
	case MenuBuy:
		return map[Action]bool{
			ActionPrivateTx: true,
			ActionRebate:    false,
			ActionWallet1:   true,
			ActionWallet2:   false,
			ActionWallet3:   false,
		}
	case MenuSell:
		return map[Action]bool{
			ActionWallet1: true,
			ActionWallet2: false,
			ActionWallet3: false,
		}
	default:
		return map[Action]bool{}
	}
}

// Build composes the keyboard for menu. Row order is static per menu; toggles
// only change decoration. Menus with a wallet row require exactly one wallet
// toggled on and fail with ErrInvalidWalletSelection otherwise.
func (b *Builder) Build(menu Menu, toggles map[Action]bool) (Layout, error) {
	switch menu {
	case MenuMain:
		return b.mainMenu(), nil
	case MenuBuy:
		if err := b.checkWallets(menu, toggles); err != nil {
			return nil, err
		}
		return buyMenu(toggles), nil
	case MenuSell:
		if err := b.checkWallets(menu, toggles); err != nil {
			return nil, err
		}
		return sellMenu(toggles), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMenu, menu)
	}
}

// MainMenu builds the top-level menu. It carries no sentinel.
func (b *Builder) MainMenu() Layout {
	return b.mainMenu()
}

func (b *Builder) mainMenu() Layout {
	return chunk([]Button{
		plain(string(ActionBuy)),
		plain(string(ActionSell)),
		plain(string(ActionLimitBuy)),
		plain(string(ActionLimitSell)),
	}, mainMenuPerRow)
}

func buyMenu(toggles map[Action]bool) Layout {
	return Layout{
		{fixed(ActionMainMenu), fixed(ActionClose)},
		{stateful(ActionPrivateTx, toggles[ActionPrivateTx]), stateful(ActionRebate, toggles[ActionRebate])},
		{plain(SelectWalletHeader)},
		walletRow(toggles),
		{plain(string(ActionBuyToken)), plain(string(ActionReceive))},
		{plain(string(ActionBuyAmount))},
		{plain(string(ActionEstimatedReceivedAmount))},
		{plain(string(ActionSendBuyTx))},
	}
}

func sellMenu(toggles map[Action]bool) Layout {
	assets := make([]Button, 0, len(sellAssets))
	for _, asset := range sellAssets {
		assets = append(assets, plain(asset))
	}

	layout := Layout{
		{fixed(ActionMainMenu), fixed(ActionClose)},
		{plain(SelectWalletHeader)},
		walletRow(toggles),
	}
	layout = append(layout, chunk(assets, mainMenuPerRow)...)
	layout = append(layout, []Button{plain(string(ActionSendSellTx))})
	return layout
}

func walletRow(toggles map[Action]bool) []Button {
	row := make([]Button, 0, len(wallets))
	for _, w := range wallets {
		row = append(row, stateful(w, toggles[w]))
	}
	return row
}

func (b *Builder) checkWallets(menu Menu, toggles map[Action]bool) error {
	selected := make([]string, 0, len(wallets))
	for _, w := range wallets {
		if toggles[w] {
			selected = append(selected, string(w))
		}
	}

	if len(selected) == 1 {
		return nil
	}

	sort.Strings(selected)
	b.log.Error("keyboard construction rejected",
		slog.String("menu", string(menu)),
		slog.Any("selected_wallets", selected),
	)
	return fmt.Errorf("%w: menu %s has %d selected", ErrInvalidWalletSelection, menu, len(selected))
}

// chunk splits buttons into rows of at most perRow.
func chunk(buttons []Button, perRow int) Layout {
	if perRow <= 0 {
		perRow = len(buttons)
	}

	layout := make(Layout, 0, (len(buttons)+perRow-1)/max(perRow, 1))
	for start := 0; start < len(buttons); start += perRow {
		end := min(start+perRow, len(buttons))
		row := make([]Button, end-start)
		copy(row, buttons[start:end])
		layout = append(layout, row)
	}
	return layout
}
