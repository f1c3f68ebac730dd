// Package erc20 reads token metadata.
package erc20

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

const tokenABI = `[
	{"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var parsedTokenABI = evm.MustParseABI(tokenABI)

var _ app.TokenReader = (*Reader)(nil)

// Reader implements app.TokenReader.
type Reader struct {
	caller *evm.Caller
}

func NewReader(reader chainapp.ChainReader) (*Reader, error) {
	caller, err := evm.NewCaller(reader, "erc20")
	if err != nil {
		return nil, err
	}
	return &Reader{caller: caller}, nil
}

// Decimals reads token.decimals() at the snapshot. A token without the
// method cannot be priced and reports SourceUnavailable.
func (r *Reader) Decimals(ctx context.Context, at domain.Snapshot, token common.Address) (uint8, error) {
	out, err := r.caller.Call(ctx, at, token, parsedTokenABI, "decimals")
	if err != nil {
		if _, ok := evm.AsRevert(err); ok {
			return 0, domain.SourceUnavailable(apperror.MsgRateNotAvailable, "decimals() on "+token.Hex())
		}
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, apperror.New(apperror.CodeContractDecodeFailed, apperror.WithContext("decimals"))
	}
	return d, nil
}
