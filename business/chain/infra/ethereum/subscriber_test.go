package ethereum

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/multiprice-oracle/business/chain/domain"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

type fakeSub struct {
	errCh chan error
	once  sync.Once
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }
func (s *fakeSub) Err() <-chan error { return s.errCh }

// chainHeader builds a deterministic header whose parent is the canonical
// header at n-1. A non-zero fork tag yields a sibling with a distinct hash.
func chainHeader(n uint64, fork uint64) *types.Header {
	h := &types.Header{
		Number: new(big.Int).SetUint64(n),
		Time:   n*12 + fork,
		Extra:  []byte{byte(fork)},
	}
	if n > 0 {
		h.ParentHash = chainHeader(n-1, 0).Hash()
	}
	return h
}

type fakeHeadClient struct {
	mu      sync.Mutex
	head    uint64
	subFail bool
	heads   []*types.Header
}

func (c *fakeHeadClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if c.subFail {
		return nil, errors.New("subscriptions not supported")
	}
	sub := &fakeSub{errCh: make(chan error, 1)}
	go func() {
		for _, h := range c.heads {
			ch <- h
		}
	}()
	return sub, nil
}

func (c *fakeHeadClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head++
	return chainHeader(c.head, 0), nil
}

func (c *fakeHeadClient) Close() {}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func TestSubscriber_WebSocketDeliversBlocksInOrder(t *testing.T) {
	ws := &fakeHeadClient{heads: []*types.Header{
		chainHeader(10, 0), chainHeader(11, 0), chainHeader(11, 0), chainHeader(12, 0),
	}}
	dial := func(ctx context.Context, url string) (HeadClient, error) { return ws, nil }

	cfg := DefaultSubscriberConfig("ws://node", "")
	sub, err := NewSubscriber(cfg, dial, testLogger())
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	blocks, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	var got []uint64
	for len(got) < 3 {
		select {
		case b := <-blocks:
			got = append(got, b.Number)
		case <-ctx.Done():
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []uint64{10, 11, 12}, got)
	assert.Equal(t, domain.StateConnected, sub.State())
	assert.False(t, sub.Status().UsingHTTP)
	assert.Equal(t, uint64(12), sub.BlockNumber())
	assert.Zero(t, sub.Status().Reorgs)
}

func TestSubscriber_FlagsReorgs(t *testing.T) {
	orphan := chainHeader(11, 1)
	// 12' builds on the orphaned 11, so it does not follow canonical 11.
	onOrphan := &types.Header{Number: big.NewInt(12), Time: 12 * 12, ParentHash: orphan.Hash()}

	ws := &fakeHeadClient{heads: []*types.Header{
		chainHeader(10, 0),
		orphan,
		chainHeader(11, 0),
		onOrphan,
		chainHeader(9, 0),
	}}
	dial := func(ctx context.Context, url string) (HeadClient, error) { return ws, nil }

	sub, err := NewSubscriber(DefaultSubscriberConfig("ws://node", ""), dial, testLogger())
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	blocks, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	var got []*domain.Block
	for len(got) < 5 {
		select {
		case b := <-blocks:
			got = append(got, b)
		case <-ctx.Done():
			t.Fatalf("timed out after %d blocks", len(got))
		}
	}

	reorg := make([]bool, len(got))
	for i, b := range got {
		reorg[i] = b.Reorg
	}
	// 11' extends 10; canonical 11 replaces it; 12 on the orphan and a
	// rewind to 9 both break the emitted chain.
	assert.Equal(t, []bool{false, false, true, true, true}, reorg)
	assert.Equal(t, uint64(9), got[4].Number)
	assert.Equal(t, 3, sub.Status().Reorgs)
}

func TestSubscriber_FallsBackToHTTPPolling(t *testing.T) {
	httpClient := &fakeHeadClient{}
	dial := func(ctx context.Context, url string) (HeadClient, error) {
		if url == "ws://node" {
			return nil, errors.New("connection refused")
		}
		return httpClient, nil
	}

	cfg := DefaultSubscriberConfig("ws://node", "http://node")
	cfg.PollInterval = 10 * time.Millisecond
	sub, err := NewSubscriber(cfg, dial, testLogger())
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	blocks, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	first := <-blocks
	second := <-blocks
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Less(t, first.Number, second.Number)
	assert.True(t, sub.Status().UsingHTTP)
}

func TestSubscriber_ReconnectBudgetSwitchesToHTTP(t *testing.T) {
	ws := &fakeHeadClient{subFail: true}
	httpClient := &fakeHeadClient{}
	dial := func(ctx context.Context, url string) (HeadClient, error) {
		if url == "ws://node" {
			return ws, nil
		}
		return httpClient, nil
	}

	cfg := DefaultSubscriberConfig("ws://node", "http://node")
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	cfg.MaxReconnects = 2
	cfg.PollInterval = 10 * time.Millisecond
	sub, err := NewSubscriber(cfg, dial, testLogger())
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	blocks, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case b := <-blocks:
		require.NotNil(t, b)
	case <-ctx.Done():
		t.Fatal("no block after fallback")
	}
	assert.True(t, sub.Status().UsingHTTP)
	assert.Equal(t, 2, sub.Status().Reconnects)
}

func TestSubscriber_NoEndpoints(t *testing.T) {
	sub, err := NewSubscriber(SubscriberConfig{}, nil, testLogger())
	require.NoError(t, err)

	_, err = sub.Subscribe(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StateDisconnected, sub.State())
}

func TestSubscriber_CloseEndsChannel(t *testing.T) {
	ws := &fakeHeadClient{}
	dial := func(ctx context.Context, url string) (HeadClient, error) { return ws, nil }

	sub, err := NewSubscriber(DefaultSubscriberConfig("ws://node", ""), dial, testLogger())
	require.NoError(t, err)

	blocks, err := sub.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	_, ok := <-blocks
	assert.False(t, ok)
	assert.Equal(t, domain.StateDisconnected, sub.State())
	require.NoError(t, sub.Close())
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		cur, max, want time.Duration
	}{
		{time.Second, 30 * time.Second, 2 * time.Second},
		{20 * time.Second, 30 * time.Second, 30 * time.Second},
		{0, 30 * time.Second, 2 * time.Second},
		{5 * time.Second, 0, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextBackoff(tt.cur, tt.max))
	}
}

type revertError struct{}

func (revertError) Error() string          { return "execution reverted: Feed not found" }
func (revertError) ErrorData() interface{} { return "0x08c379a0" }

var _ rpc.DataError = revertError{}

func TestIsRevert(t *testing.T) {
	assert.True(t, IsRevert(revertError{}))
	assert.True(t, IsRevert(errors.New("execution reverted")))
	assert.False(t, IsRevert(errors.New("connection reset by peer")))
	assert.False(t, IsRevert(nil))
}
