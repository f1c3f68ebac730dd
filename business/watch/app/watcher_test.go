package app_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/app"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

type blockSource struct {
	ch chan *chaindomain.Block
}

func (b *blockSource) SubscribeBlocks(context.Context) (<-chan *chaindomain.Block, error) {
	return b.ch, nil
}

func (b *blockSource) Status() chaindomain.ConnectionStatus {
	return chaindomain.ConnectionStatus{State: chaindomain.StateConnected}
}

type quoter struct {
	mu   sync.Mutex
	reqs []oracledomain.CombinedRequest
	fail map[common.Address]error
	head *oracledomain.Snapshot
}

func (q *quoter) CombinedQuote(_ context.Context, req oracledomain.CombinedRequest) (*oracledomain.AggregateResult, error) {
	q.mu.Lock()
	q.reqs = append(q.reqs, req)
	q.mu.Unlock()
	if err := q.fail[req.In]; err != nil {
		return nil, err
	}
	res := &oracledomain.AggregateResult{
		Value:    new(big.Int).Mul(req.AmountIn, big.NewInt(2)),
		Selected: oracledomain.SourceCPA,
	}
	if q.head != nil {
		res.Snapshot = *q.head
	}
	res.Candidates[oracledomain.SourceCPA] = oracledomain.Candidate{
		Source: oracledomain.SourceCPA, Amount: res.Value, Present: true,
	}
	return res, nil
}

type reporter struct {
	mu      sync.Mutex
	started bool
	stopped bool
	blocks  []uint64
	reports chan []*domain.Report
	status  map[string]bool
}

func newReporter() *reporter {
	return &reporter{reports: make(chan []*domain.Report, 8), status: make(map[string]bool)}
}

func (r *reporter) Start(context.Context) error { r.started = true; return nil }

func (r *reporter) Report(block *chaindomain.Block, reports []*domain.Report) {
	r.mu.Lock()
	r.blocks = append(r.blocks, block.Number)
	r.mu.Unlock()
	r.reports <- reports
}

func (r *reporter) UpdateConnectionStatus(name string, connected bool, _ time.Duration) {
	r.mu.Lock()
	r.status[name] = connected
	r.mu.Unlock()
}

func (r *reporter) Stop() error { r.stopped = true; return nil }

type tokenMeta map[common.Address]uint8

func (m tokenMeta) Decimals(_ context.Context, token common.Address) (uint8, error) {
	d, ok := m[token]
	if !ok {
		return 0, errors.New("no decimals")
	}
	return d, nil
}

var (
	unknownToken = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	wideToken    = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	testLog      = logger.New(io.Discard, logger.LevelError, "test", nil)
)

func resolver() *app.PairResolver {
	return app.NewPairResolver(asset.DefaultRegistry(), tokenMeta{
		asset.AddrUSDC: 6,
		asset.AddrWETH: 18,
		unknownToken:   9,
		wideToken:      200,
	})
}

func TestPairResolver(t *testing.T) {
	ctx := context.Background()

	pairs, err := resolver().Resolve(ctx, []string{"WETH/USDC:1.5", "usdc/" + unknownToken.Hex() + ":10"})
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	require.Equal(t, "WETH/USDC", pairs[0].Label())
	require.Equal(t, "1500000000000000000", pairs[0].AmountIn.Raw().String())
	require.Equal(t, uint8(6), pairs[0].Out.Decimals())

	require.Equal(t, unknownToken, pairs[1].Out.Address())
	require.Equal(t, uint8(9), pairs[1].Out.Decimals())
	require.Equal(t, "10000000", pairs[1].AmountIn.Raw().String())

	tests := []struct {
		name string
		spec string
	}{
		{"malformed", "WETH-USDC"},
		{"unknown symbol", "FOO/USDC:1"},
		{"no decimals", "WETH/0x00000000000000000000000000000000000000bb:1"},
		{"decimals out of range", "WETH/" + wideToken.Hex() + ":1"},
		{"bad amount", "WETH/USDC:abc"},
		{"zero amount", "WETH/USDC:0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver().Resolve(ctx, []string{tt.spec})
			require.Error(t, err)
		})
	}
}

func TestWatcher_QuotesEveryPairPerBlock(t *testing.T) {
	blocks := &blockSource{ch: make(chan *chaindomain.Block)}
	q := &quoter{fail: map[common.Address]error{
		asset.AddrUSDC: oracledomain.SourceUnavailable("rate not available", "test"),
	}}
	rep := newReporter()

	w, err := app.NewWatcher(blocks, q, resolver(), rep, app.WatcherConfig{
		Specs:  []string{"WETH/USDC:1", "USDC/WETH:100"},
		Buffer: big.NewInt(1e16),
		Window: 1800,
		Mask:   31,
	}, testLog)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.True(t, rep.started)
	require.Len(t, w.Pairs(), 2)

	blocks.ch <- &chaindomain.Block{Number: 100, Timestamp: time.Unix(1_700_000_000, 0)}

	var reports []*domain.Report
	select {
	case reports = <-rep.reports:
	case <-time.After(2 * time.Second):
		t.Fatal("no report")
	}
	require.Len(t, reports, 2)

	ok, failed := reports[0], reports[1]
	require.True(t, ok.OK())
	assert.Equal(t, uint64(100), ok.Block)
	assert.Equal(t, "2000000", ok.Value().Raw().String())
	assert.Equal(t, "2", ok.Rate().String())

	require.False(t, failed.OK())
	assert.Equal(t, "SOURCE_UNAVAILABLE", failed.ErrorCode())

	q.mu.Lock()
	for _, req := range q.reqs {
		assert.Equal(t, big.NewInt(1e16), req.Buffer)
		assert.Equal(t, oracledomain.TwapWindow(1800), req.Window)
		assert.Equal(t, oracledomain.InclusionMask(31), req.Mask)
	}
	q.mu.Unlock()

	assert.Len(t, w.Latest(), 2)
	rep.mu.Lock()
	assert.True(t, rep.status["Ethereum"])
	rep.mu.Unlock()

	require.NoError(t, w.Stop())
	assert.True(t, rep.stopped)
}

func TestWatcher_StartFailsOnBadPair(t *testing.T) {
	w, err := app.NewWatcher(&blockSource{ch: make(chan *chaindomain.Block)}, &quoter{}, resolver(), newReporter(),
		app.WatcherConfig{Specs: []string{"FOO/USDC:1"}}, testLog)
	require.NoError(t, err)
	require.Error(t, w.Start(context.Background()))
}

func TestWatcher_OnBlockDirect(t *testing.T) {
	usdc := asset.USDC
	pair := domain.Pair{In: usdc, Out: asset.WETH, AmountIn: asset.NewAmountFromUint64(usdc, 5)}
	rep := newReporter()

	w, err := app.NewWatcher(&blockSource{}, &quoter{}, nil, rep, app.WatcherConfig{
		Pairs: []domain.Pair{pair, pair, pair},
	}, testLog)
	require.NoError(t, err)

	reports := w.OnBlock(context.Background(), &chaindomain.Block{Number: 7})
	require.Len(t, reports, 3)
	for _, r := range reports {
		require.True(t, r.OK())
		require.Equal(t, "10", r.Value().Raw().String())
	}
	require.Len(t, <-rep.reports, 3)
}

func TestWatcher_ReportCarriesPinnedBlock(t *testing.T) {
	usdc := asset.USDC
	pair := domain.Pair{In: usdc, Out: asset.WETH, AmountIn: asset.NewAmountFromUint64(usdc, 5)}
	failing := domain.Pair{In: asset.WETH, Out: usdc, AmountIn: asset.NewAmountFromUint64(asset.WETH, 1)}
	q := &quoter{
		head: &oracledomain.Snapshot{Number: big.NewInt(105), Time: 1_700_000_060},
		fail: map[common.Address]error{
			asset.AddrWETH: oracledomain.SourceUnavailable("rate not available", "test"),
		},
	}

	w, err := app.NewWatcher(&blockSource{}, q, nil, newReporter(), app.WatcherConfig{
		Pairs: []domain.Pair{pair, failing},
	}, testLog)
	require.NoError(t, err)

	trigger := &chaindomain.Block{Number: 100, Timestamp: time.Unix(1_700_000_000, 0)}
	reports := w.OnBlock(context.Background(), trigger)
	require.Len(t, reports, 2)

	assert.Equal(t, uint64(105), reports[0].Block)
	assert.Equal(t, time.Unix(1_700_000_060, 0), reports[0].BlockTime)
	assert.Equal(t, uint64(100), reports[1].Block)
	assert.Equal(t, trigger.Timestamp, reports[1].BlockTime)
}
