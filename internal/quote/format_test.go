package quote

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGwei(t *testing.T) {
	testCases := []struct {
		name string
		wei  *big.Int
		want string
	}{
		{name: "whole gwei", wei: big.NewInt(30_000_000_000), want: "30"},
		{name: "floors fraction", wei: big.NewInt(23_999_999_999), want: "23"},
		{name: "below one gwei", wei: big.NewInt(500_000_000), want: "0"},
		{name: "zero", wei: big.NewInt(0), want: "0"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Gwei(Quote{GasPrice: tc.wei}))
		})
	}

	assert.Equal(t, Unavailable, Gwei(Quote{Err: errors.New("x")}))
	assert.Equal(t, Unavailable, Height(Quote{}))
}

func TestNetworkByChainID(t *testing.T) {
	n, err := NetworkByChainID(137)
	assert.NoError(t, err)
	assert.Equal(t, Polygon, n)

	_, err = NetworkByChainID(56)
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}
