// Package quote looks up block height and gas price for the networks shown
// in the menu body.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrUnsupportedNetwork is returned for networks without a configured reader.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// Network identifies an EVM chain.
type Network struct {
	Name    string
	ChainID int64
}

var (
	Ethereum = Network{Name: "Ethereum", ChainID: 1}
	Polygon  = Network{Name: "Polygon", ChainID: 137}
)

// Networks returns the networks rendered in the menu body, in display order.
func Networks() []Network {
	return []Network{Ethereum, Polygon}
}

// NetworkByChainID resolves a chain id.
func NetworkByChainID(chainID int64) (Network, error) {
	for _, n := range Networks() {
		if n.ChainID == chainID {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: chain id %d", ErrUnsupportedNetwork, chainID)
}

// Quote is one network's block height and gas price.
type Quote struct {
	Network     Network
	BlockHeight uint64
	GasPrice    *big.Int // wei
	FetchedAt   time.Time
	// Err is set when the lookup failed; the other fields are then zero.
	Err error
}

// OK reports whether the quote carries data.
func (q Quote) OK() bool {
	return q.Err == nil && q.GasPrice != nil
}

// ChainReader is the on-chain surface the quote service needs.
// *ethclient.Client satisfies it.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return client, nil
}
