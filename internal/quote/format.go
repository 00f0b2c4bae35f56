package quote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/koi-bot/internal/transport"
)

// Unavailable replaces the values of a network that could not be read.
const Unavailable = "n/a"

// Gwei converts a quote's gas price from wei, rounded down.
func Gwei(q Quote) string {
	if !q.OK() {
		return Unavailable
	}
	return decimal.NewFromBigInt(q.GasPrice, -9).Floor().String()
}

// Height renders the block height.
func Height(q Quote) string {
	if !q.OK() {
		return Unavailable
	}
	return strconv.FormatUint(q.BlockHeight, 10)
}

// Format renders the menu body in Telegram MarkdownV2.
func Format(quotes []Quote) string {
	blocks := make([]string, 0, len(quotes))
	for _, q := range quotes {
		blocks = append(blocks, fmt.Sprintf("*%s*\n*Gas:* %s Gwei  ═  *Block:* %s",
			transport.EscapeMarkdown(q.Network.Name),
			transport.EscapeMarkdown(Gwei(q)),
			transport.EscapeMarkdown(Height(q)),
		))
	}
	return strings.Join(blocks, "\n\n")
}
