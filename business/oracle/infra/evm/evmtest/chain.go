// Package evmtest provides an in-memory ChainReader that serves ABI-encoded
// contract calls from Go handlers.
package evmtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Handler receives the decoded call arguments and returns the outputs to
// encode, or an error to hand back to the caller.
type Handler func(args []any) ([]any, error)

type route struct {
	contract *abi.ABI
	handlers map[string]Handler
}

// Chain is a fake chainapp.ChainReader.
type Chain struct {
	mu     sync.Mutex
	routes map[common.Address]*route
	blocks []*big.Int

	Header *types.Header
}

func NewChain(head *types.Header) *Chain {
	return &Chain{routes: make(map[common.Address]*route), Header: head}
}

// Handle serves method of contract at addr.
func (c *Chain) Handle(addr common.Address, contract *abi.ABI, method string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.routes[addr]
	if !ok {
		r = &route{contract: contract, handlers: make(map[string]Handler)}
		c.routes[addr] = r
	}
	r.handlers[method] = h
}

// Blocks returns the block number every call was pinned at, in order.
func (c *Chain) Blocks() []*big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*big.Int(nil), c.blocks...)
}

func (c *Chain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if c.Header == nil {
		return nil, errors.New("no header")
	}
	return c.Header, nil
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	c.blocks = append(c.blocks, blockNumber)
	r, ok := c.routes[*msg.To]
	c.mu.Unlock()

	// No code at the address.
	if !ok {
		return nil, nil
	}

	method, err := r.contract.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	h, ok := r.handlers[method.Name]
	if !ok {
		return nil, Revert("")
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// RevertError mimics the JSON-RPC error a node returns for a revert.
type RevertError struct {
	reason string
	data   string
}

func (e *RevertError) Error() string {
	if e.reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.reason
}

func (e *RevertError) ErrorCode() int { return 3 }

func (e *RevertError) ErrorData() interface{} {
	if e.data == "" {
		return nil
	}
	return e.data
}

// Revert builds a revert carrying reason as Error(string) data.
func Revert(reason string) error {
	if reason == "" {
		return &RevertError{}
	}
	strType, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	payload, err := abi.Arguments{{Type: strType}}.Pack(reason)
	if err != nil {
		panic(fmt.Sprintf("pack revert: %v", err))
	}
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	return &RevertError{reason: reason, data: hexutil.Encode(append(selector, payload...))}
}
