package keyboard

import "strings"

// TokenLabelPrefix precedes the captured token address on the Buy Token button.
const TokenLabelPrefix = "Token: "

// BuyOrder is the buy configuration as currently rendered on a buy keyboard.
type BuyOrder struct {
	PrivateTx bool   `json:"private_tx"`
	Rebate    bool   `json:"rebate"`
	Wallet    Action `json:"wallet"`
	Token     string `json:"token,omitempty"`
}

// TokenLabel renders the Buy Token label for a captured address.
func TokenLabel(address string) string {
	return TokenLabelPrefix + address
}

// ReadBuyOrder reconstructs the buy order from a rendered layout.
func ReadBuyOrder(layout Layout) BuyOrder {
	order := BuyOrder{
		PrivateTx: layout.Selected(ActionPrivateTx),
		Rebate:    layout.Selected(ActionRebate),
	}

	for _, w := range wallets {
		if layout.Selected(w) {
			order.Wallet = w
			break
		}
	}

	if label := layout.Label(ActionBuyToken); strings.HasPrefix(label, TokenLabelPrefix) {
		order.Token = strings.TrimPrefix(label, TokenLabelPrefix)
	}

	return order
}
