package app

import (
	"context"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/asset"
)

// query is the per-call state: the pinned block and the token decimals read
// so far. It is discarded when the call returns.
type query struct {
	at     domain.Snapshot
	tokens TokenReader

	mu       sync.Mutex
	decimals map[common.Address]uint8
}

func newQuery(at domain.Snapshot, tokens TokenReader) *query {
	return &query{
		at:       at,
		tokens:   tokens,
		decimals: make(map[common.Address]uint8),
	}
}

// asset returns token with its on-chain decimals, reading them at most once
// per query.
func (q *query) asset(ctx context.Context, token common.Address) (*asset.Asset, error) {
	q.mu.Lock()
	d, ok := q.decimals[token]
	q.mu.Unlock()
	if ok {
		return asset.New(token, "", d), nil
	}

	d, err := q.tokens.Decimals(ctx, q.at, token)
	if err != nil {
		return nil, err
	}
	if d > asset.MaxDecimals {
		return nil, domain.InvalidParameter(apperror.MsgDecimalsOutOfRange,
			token.Hex()+" reports "+strconv.Itoa(int(d))+" decimals")
	}

	q.mu.Lock()
	q.decimals[token] = d
	q.mu.Unlock()
	return asset.New(token, "", d), nil
}
