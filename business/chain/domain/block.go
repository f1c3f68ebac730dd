// Package domain contains the core domain types for the chain context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is the subset of an Ethereum header the oracle reacts to.
type Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time

	// Reorg is set when this head replaces a block that was already emitted.
	Reorg bool
}

// Follows reports whether b directly extends prev.
func (b *Block) Follows(prev *Block) bool {
	return prev != nil && b.Number == prev.Number+1 && b.ParentHash == prev.Hash
}

// ConnectionState represents the state of a chain connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// GaugeValue is the numeric encoding exported as a metric.
func (s ConnectionState) GaugeValue() int64 {
	switch s {
	case StateConnecting:
		return 1
	case StateConnected:
		return 2
	case StateReconnecting:
		return 3
	default:
		return 0
	}
}

// ConnectionStatus contains detailed connection information.
type ConnectionStatus struct {
	State      ConnectionState
	LastBlock  uint64
	LastUpdate time.Time
	Reconnects int
	Reorgs     int
	UsingHTTP  bool // true if using HTTP fallback
}
