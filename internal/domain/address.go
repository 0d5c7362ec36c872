package domain

import "strings"

// NormalizeAddress lowercases an address. Addresses are stored and compared lowercase.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsZeroAddress reports whether address is empty or the zero address
func IsZeroAddress(address string) bool {
	a := NormalizeAddress(address)
	return a == "" || a == ZeroAddress || a == "0x0"
}

// TokenKey is the natural key of a geo token
type TokenKey struct {
	TokenID         string
	ContractAddress string
}

// NewTokenKey builds a key with a normalized contract address
func NewTokenKey(tokenID, contractAddress string) TokenKey {
	return TokenKey{TokenID: tokenID, ContractAddress: NormalizeAddress(contractAddress)}
}

func (k TokenKey) String() string {
	return k.ContractAddress + "/" + k.TokenID
}
