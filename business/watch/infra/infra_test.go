package infra_test

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/infra"
	"github.com/fd1az/multiprice-oracle/internal/asset"
)

func sampleReports() []*domain.Report {
	pair := domain.Pair{In: asset.WETH, Out: asset.USDC, AmountIn: asset.NewAmountFromUint64(asset.WETH, 1e18)}

	res := &oracledomain.AggregateResult{Value: big.NewInt(3_500_000_000), Selected: oracledomain.SourceCPA}
	res.Candidates[oracledomain.SourceRegistry] = oracledomain.Candidate{
		Source: oracledomain.SourceRegistry, Amount: big.NewInt(3_510_000_000), Present: true,
	}
	res.Candidates[oracledomain.SourceCPA] = oracledomain.Candidate{
		Source: oracledomain.SourceCPA, Amount: big.NewInt(3_500_000_000), Present: true,
	}

	return []*domain.Report{
		{Block: 1, Pair: pair, Result: res},
		{Block: 1, Pair: pair, Err: oracledomain.InsufficientHistory("test")},
	}
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := infra.NewConsoleReporterTo(&buf)

	require.NoError(t, r.Start(context.Background()))
	r.Report(&chaindomain.Block{Number: 19_000_000, Timestamp: time.Unix(0, 0).UTC()}, sampleReports())

	out := buf.String()
	assert.Contains(t, out, "#19000000")
	assert.Contains(t, out, "Value:        3500 USDC via cp-a")
	assert.Contains(t, out, "registry:")
	assert.Contains(t, out, "+28.6 bps")
	assert.Contains(t, out, "[INSUFFICIENT_HISTORY]")

	buf.Reset()
	r.UpdateConnectionStatus("Ethereum", true, 0)
	r.UpdateConnectionStatus("Ethereum", true, 0)
	r.UpdateConnectionStatus("Ethereum", false, 0)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Ethereum: connected")))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Ethereum: disconnected")))
}

func TestBroadcaster(t *testing.T) {
	b := infra.NewBroadcaster()
	block := &chaindomain.Block{Number: 5}

	early, cancelEarly := b.Subscribe(1)
	b.Report(block, sampleReports())

	u := <-early
	assert.Equal(t, uint64(5), u.Block.Number)
	assert.Len(t, u.Reports, 2)

	// Late subscribers get the last update first.
	late, cancelLate := b.Subscribe(4)
	u = <-late
	assert.Equal(t, uint64(5), u.Block.Number)

	// A full subscriber does not block delivery to others.
	b.Report(&chaindomain.Block{Number: 6}, nil)
	b.Report(&chaindomain.Block{Number: 7}, nil)
	assert.Equal(t, uint64(6), (<-early).Block.Number)
	assert.Equal(t, uint64(6), (<-late).Block.Number)
	assert.Equal(t, uint64(7), (<-late).Block.Number)

	require.Equal(t, 2, b.Subscribers())
	cancelEarly()
	cancelEarly()
	require.Equal(t, 1, b.Subscribers())
	_, open := <-early
	assert.False(t, open)

	require.NoError(t, b.Stop())
	_, open = <-late
	assert.False(t, open)
	cancelLate()
	require.Equal(t, 0, b.Subscribers())
}

type countingReporter struct {
	started, reports, status, stopped int
}

func (c *countingReporter) Start(context.Context) error { c.started++; return nil }
func (c *countingReporter) Report(*chaindomain.Block, []*domain.Report) {
	c.reports++
}
func (c *countingReporter) UpdateConnectionStatus(string, bool, time.Duration) { c.status++ }
func (c *countingReporter) Stop() error                                       { c.stopped++; return nil }

func TestMultiReporter(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	m := infra.MultiReporter{a, b}

	require.NoError(t, m.Start(context.Background()))
	m.Report(&chaindomain.Block{}, nil)
	m.UpdateConnectionStatus("Ethereum", true, 0)
	require.NoError(t, m.Stop())

	for _, r := range []*countingReporter{a, b} {
		assert.Equal(t, countingReporter{1, 1, 1, 1}, *r)
	}
}
