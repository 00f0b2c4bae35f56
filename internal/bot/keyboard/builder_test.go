package keyboard_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	"github.com/Proton-105/koi-bot/internal/testutil"
)

func newBuilder() *keyboard.Builder {
	return keyboard.NewBuilder(testutil.DiscardLogger())
}

func TestBuilder_BuyMenuDefaults(t *testing.T) {
	layout, err := newBuilder().Build(keyboard.MenuBuy, keyboard.DefaultToggles(keyboard.MenuBuy))
	testutil.AssertNoError(t, err)

	want := keyboard.Layout{
		{{Text: "🏠 Main Menu", Token: "Main Menu"}, {Text: "❌ Close", Token: "Close"}},
		{{Text: "✅ Private Tx", Token: "✅ Private Tx"}, {Text: "Rebate", Token: "Rebate"}},
		{{Text: "=Select Wallet=", Token: "=Select Wallet="}},
		{{Text: "✅ Wallet 1", Token: "✅ Wallet 1"}, {Text: "Wallet 2", Token: "Wallet 2"}, {Text: "Wallet 3", Token: "Wallet 3"}},
		{{Text: "Buy Token", Token: "Buy Token"}, {Text: "Receives", Token: "Receives"}},
		{{Text: "Buy Amount", Token: "Buy Amount"}},
		{{Text: "Estimated Received Amount", Token: "Estimated Received Amount"}},
		{{Text: "Send Buy Tx", Token: "Send Buy Tx"}},
	}

	if diff := cmp.Diff(want, layout); diff != "" {
		t.Fatalf("buy menu mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_MainMenu(t *testing.T) {
	layout, err := newBuilder().Build(keyboard.MenuMain, nil)
	testutil.AssertNoError(t, err)

	want := keyboard.Layout{
		{{Text: "Buy", Token: "Buy"}, {Text: "Sell", Token: "Sell"}, {Text: "Limit Buy", Token: "Limit Buy"}},
		{{Text: "Limit Sell", Token: "Limit Sell"}},
	}

	if diff := cmp.Diff(want, layout); diff != "" {
		t.Fatalf("main menu mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_SellMenu(t *testing.T) {
	layout, err := newBuilder().Build(keyboard.MenuSell, map[keyboard.Action]bool{keyboard.ActionWallet3: true})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 6, len(layout))
	testutil.AssertEqual(t, true, layout.Selected(keyboard.ActionWallet3))
	testutil.AssertEqual(t, false, layout.Selected(keyboard.ActionWallet1))

	last, ok := layout.Last()
	testutil.AssertEqual(t, true, ok)
	testutil.AssertEqual(t, "Send Sell Tx", last.Text)
}

func TestBuilder_TogglesOnlyChangeDecoration(t *testing.T) {
	b := newBuilder()

	base, err := b.Build(keyboard.MenuBuy, keyboard.DefaultToggles(keyboard.MenuBuy))
	testutil.AssertNoError(t, err)

	toggled, err := b.Build(keyboard.MenuBuy, map[keyboard.Action]bool{
		keyboard.ActionPrivateTx: false,
		keyboard.ActionRebate:    true,
		keyboard.ActionWallet2:   true,
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, len(base), len(toggled))
	for i := range base {
		testutil.AssertEqual(t, len(base[i]), len(toggled[i]))
		for j := range base[i] {
			testutil.AssertEqual(t, base[i][j].Action(), toggled[i][j].Action())
		}
	}
}

func TestBuilder_WalletPrecondition(t *testing.T) {
	tests := []struct {
		name    string
		toggles map[keyboard.Action]bool
		wantErr bool
	}{
		{name: "none selected", toggles: map[keyboard.Action]bool{}, wantErr: true},
		{name: "nil toggles", toggles: nil, wantErr: true},
		{name: "wallet 1", toggles: map[keyboard.Action]bool{keyboard.ActionWallet1: true}},
		{name: "wallet 2", toggles: map[keyboard.Action]bool{keyboard.ActionWallet2: true, keyboard.ActionWallet1: false}},
		{name: "wallet 3", toggles: map[keyboard.Action]bool{keyboard.ActionWallet3: true}},
		{name: "two selected", toggles: map[keyboard.Action]bool{keyboard.ActionWallet1: true, keyboard.ActionWallet3: true}, wantErr: true},
		{name: "all selected", toggles: map[keyboard.Action]bool{
			keyboard.ActionWallet1: true,
			keyboard.ActionWallet2: true,
			keyboard.ActionWallet3: true,
		}, wantErr: true},
	}

	for _, menu := range []keyboard.Menu{keyboard.MenuBuy, keyboard.MenuSell} {
		for _, tt := range tests {
			t.Run(string(menu)+"/"+tt.name, func(t *testing.T) {
				_, err := newBuilder().Build(menu, tt.toggles)
				if !tt.wantErr {
					testutil.AssertNoError(t, err)
					return
				}

				testutil.AssertError(t, err)
				if !errors.Is(err, keyboard.ErrInvalidWalletSelection) {
					t.Fatalf("expected ErrInvalidWalletSelection, got %v", err)
				}
			})
		}
	}
}

func TestBuilder_UnknownMenu(t *testing.T) {
	_, err := newBuilder().Build(keyboard.Menu("limit"), nil)
	if !errors.Is(err, keyboard.ErrUnknownMenu) {
		t.Fatalf("expected ErrUnknownMenu, got %v", err)
	}
}

func TestBuilder_TokensFitCallbackLimit(t *testing.T) {
	b := newBuilder()
	for _, menu := range keyboard.Menus() {
		layout, err := b.Build(menu, keyboard.DefaultToggles(menu))
		testutil.AssertNoError(t, err)

		_, err = keyboard.ToMarkup(layout)
		testutil.AssertNoError(t, err)
	}
}
