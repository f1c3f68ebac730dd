// Package asset provides a type-safe model for on-chain fungible tokens.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (UI, parsing, display).
package asset

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// MaxDecimals is the largest precision accepted for a token.
const MaxDecimals = 77

// Asset is a token identified by its contract address plus the number of
// fractional digits its integer amounts carry.
// The symbol is NOT identity - just metadata for display.
type Asset struct {
	address  common.Address
	symbol   string
	name     string
	decimals uint8
}

// New creates a new Asset.
func New(address common.Address, symbol string, decimals uint8) *Asset {
	if decimals > MaxDecimals {
		panic("asset: decimals out of range")
	}
	if symbol == "" {
		symbol = shortHex(address)
	}

	return &Asset{
		address:  address,
		symbol:   symbol,
		decimals: decimals,
	}
}

// NewWithName creates a new Asset with a human-readable name.
func NewWithName(address common.Address, symbol, name string, decimals uint8) *Asset {
	a := New(address, symbol, decimals)
	a.name = name
	return a
}

// WithDecimals returns a copy of a carrying a freshly observed precision.
func (a *Asset) WithDecimals(decimals uint8) *Asset {
	cp := *a
	if decimals > MaxDecimals {
		panic("asset: decimals out of range")
	}
	cp.decimals = decimals
	return &cp
}

// Address returns the token contract address.
func (a *Asset) Address() common.Address {
	return a.address
}

// Symbol returns the ticker symbol (e.g., "WETH", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// String returns a human-readable representation.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by address.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.address == other.address
}

// SortsBefore reports whether a is token0 of a pool containing a and other.
func (a *Asset) SortsBefore(other *Asset) bool {
	return bytes.Compare(a.address.Bytes(), other.address.Bytes()) < 0
}

func shortHex(addr common.Address) string {
	return addr.Hex()[:8]
}
