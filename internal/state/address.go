package state

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressPrefix is the marker every accepted address starts with.
const AddressPrefix = "0x"

// ErrInvalidAddress is returned for text that is not a 0x-prefixed 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid address format")

// ValidateAddress checks format only. Surrounding whitespace is ignored.
func ValidateAddress(text string) (string, error) {
	candidate := strings.TrimSpace(text)
	if !strings.HasPrefix(candidate, AddressPrefix) || !common.IsHexAddress(candidate) {
		return "", ErrInvalidAddress
	}
	return candidate, nil
}
