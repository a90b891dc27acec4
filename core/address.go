package core

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

var addressPattern = regexp.MustCompile(`^0[xX][a-fA-F0-9]{40}$`)

// NormalizeAddress validates a raw wallet address and returns its EIP-55
// checksummed form. Input is case-insensitive; storage and comparison use
// the checksummed rendering only.
func NormalizeAddress(raw string) (string, error) {
	if !addressPattern.MatchString(raw) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(raw).Hex(), nil
}
