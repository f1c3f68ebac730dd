package components

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusComponent_Stale(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewStatusComponent(time.Minute)
	s.now = func() time.Time { return now }

	s.Update(ConnectionStatus{Name: "Ethereum", Connected: true, LastUpdate: now.Add(-30 * time.Second)})
	assert.False(t, s.Stale("Ethereum"))
	assert.Contains(t, s.View(), "● Ethereum")

	now = now.Add(2 * time.Minute)
	assert.True(t, s.Stale("Ethereum"))
	assert.Contains(t, s.View(), "no block for 2m30s")

	s.Touch("Ethereum", now)
	assert.False(t, s.Stale("Ethereum"))

	s.Update(ConnectionStatus{Name: "Ethereum"})
	assert.False(t, s.Connected("Ethereum"))
	assert.False(t, s.Stale("Ethereum"))
	assert.Contains(t, s.View(), "(disconnected)")
}

func TestStatsComponent_SelectionBreakdown(t *testing.T) {
	s := NewStatsComponent([]string{"registry", "cl-spot", "cp-A"})
	st := s.Stats()
	st.Quotes, st.Failed = 4, 1
	st.Selected["cp-A"] = 2
	st.Selected["registry"] = 1
	s.Update(st)

	assert.InDelta(t, 75.0, s.Stats().OKRate(), 1e-9)
	view := s.View()
	assert.Contains(t, view, "75.0% ok")
	assert.Contains(t, view, "Selected:")
	assert.NotContains(t, view, "cl-spot")
}

func TestQuotesComponent_FailuresOnly(t *testing.T) {
	q := NewQuotesComponent()
	q.Update(12, []QuoteRow{
		{Pair: "WETH/USDC", AmountIn: "1 WETH", Value: "3500 USDC", Rate: decimal.NewFromInt(3500), Selected: "cp-A"},
		{Pair: "WBTC/USDC", AmountIn: "1 WBTC", Error: "SOURCE_UNAVAILABLE"},
	})
	assert.Contains(t, q.View(), "3500 USDC")

	assert.True(t, q.ToggleFailuresOnly())
	view := q.View()
	assert.NotContains(t, view, "3500 USDC")
	assert.Contains(t, view, "SOURCE_UNAVAILABLE")
	assert.Contains(t, view, "[failures]")
}
