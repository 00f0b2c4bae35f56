package keyboard_test

import (
	"testing"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
	"github.com/Proton-105/koi-bot/internal/testutil"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		action   keyboard.Action
		selected bool
		want     string
	}{
		{name: "plain toggle", action: keyboard.ActionRebate, selected: false, want: "Rebate"},
		{name: "selected toggle", action: keyboard.ActionRebate, selected: true, want: "✅ Rebate"},
		{name: "selected wallet 2", action: keyboard.ActionWallet2, selected: true, want: "✅ Wallet 2"},
		{name: "main menu glyph", action: keyboard.ActionMainMenu, selected: true, want: "🏠 Main Menu"},
		{name: "close glyph", action: keyboard.ActionClose, selected: true, want: "❌ Close"},
		{name: "undecorated ignores selected", action: keyboard.ActionBuyAmount, selected: true, want: "Buy Amount"},
		{name: "sentinel never decorated", action: keyboard.ActionSendBuyTx, selected: true, want: "Send Buy Tx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.want, keyboard.Encode(tt.action, tt.selected))
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, action := range keyboard.Actions() {
		action := action
		t.Run(action.String(), func(t *testing.T) {
			testutil.AssertEqual(t, action, keyboard.Decode(keyboard.Encode(action, true)))
			testutil.AssertEqual(t, action, keyboard.Decode(keyboard.Encode(action, false)))
		})
	}
}

func TestParse_ReportsDecoration(t *testing.T) {
	action, selected := keyboard.Parse("✅ Private Tx")
	testutil.AssertEqual(t, keyboard.ActionPrivateTx, action)
	testutil.AssertEqual(t, true, selected)

	action, selected = keyboard.Parse("Private Tx")
	testutil.AssertEqual(t, keyboard.ActionPrivateTx, action)
	testutil.AssertEqual(t, false, selected)
}

func TestDecode_Other(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "section header", text: keyboard.SelectWalletHeader},
		{name: "amount", text: "0.25 ETH"},
		{name: "empty", text: ""},
		{name: "prefix of decorated form", text: "✅ Wallet"},
		{name: "decorated form with missing space", text: "✅Wallet 2"},
		{name: "plain text with trailing space", text: "Rebate "},
		{name: "glyph on undecoratable action", text: "✅ Buy Amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyboard.Decode(tt.text)
			testutil.AssertEqual(t, keyboard.Other(tt.text), got)
			testutil.AssertEqual(t, true, got.IsOther())
		})
	}
}

func TestAction_IsOther(t *testing.T) {
	testutil.AssertEqual(t, false, keyboard.ActionWallet1.IsOther())
	testutil.AssertEqual(t, true, keyboard.Action("✅ Wallet 1").IsOther())
	testutil.AssertEqual(t, true, keyboard.Other("Sell All").IsOther())
}

func TestAction_Decoratable(t *testing.T) {
	testutil.AssertEqual(t, true, keyboard.ActionWallet3.Decoratable())
	testutil.AssertEqual(t, true, keyboard.ActionClose.Decoratable())
	testutil.AssertEqual(t, false, keyboard.ActionBuy.Decoratable())
	testutil.AssertEqual(t, false, keyboard.ActionSendSellTx.Decoratable())
}
