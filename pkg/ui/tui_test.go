package ui

import (
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/internal/asset"
)

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func reports() []*domain.Report {
	pair := domain.Pair{In: asset.WETH, Out: asset.USDC, AmountIn: asset.NewAmountFromUint64(asset.WETH, 1e18)}
	res := &oracledomain.AggregateResult{Value: big.NewInt(3_500_000_000), Selected: oracledomain.SourceCPA}
	res.Candidates[oracledomain.SourceRegistry] = oracledomain.Candidate{Amount: big.NewInt(3_510_000_000), Present: true}
	res.Candidates[oracledomain.SourceCPA] = oracledomain.Candidate{Amount: big.NewInt(3_500_000_000), Present: true}
	return []*domain.Report{
		{Block: 10, Pair: pair, Result: res, Latency: 40 * time.Millisecond},
		{Block: 10, Pair: pair, Err: oracledomain.SourceUnavailable("rate not available", "test"), Latency: 20 * time.Millisecond},
	}
}

func TestModel_PhasesAndReports(t *testing.T) {
	m := New()
	m.welcomeStart = time.Now().Add(-WelcomeDuration)
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 50}, TickMsg{})
	require.Equal(t, PhaseStartup, m.phase)
	assert.Contains(t, m.View(), "Starting up")

	m = update(t, m,
		ConnectionStatusMsg{Name: "Ethereum", Connected: true},
		BlockMsg{Number: 10},
		ReportMsg{Block: 10, Reports: reports()},
	)
	require.Equal(t, PhaseDashboard, m.phase)
	assert.Equal(t, StatusConnected, m.startupSteps[StepEthereum].Status)

	st := m.stats.Stats()
	assert.Equal(t, int64(1), st.BlocksProcessed)
	assert.Equal(t, int64(2), st.Quotes)
	assert.Equal(t, int64(1), st.Failed)
	assert.InDelta(t, 30, st.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(1), st.Selected[oracledomain.SourceCPA.String()])
	assert.Equal(t, 1, m.candidates.Len())

	view := m.View()
	assert.Contains(t, view, "QUOTES (block #10)")
	assert.Contains(t, view, "3500 USDC")
	assert.Contains(t, view, "SOURCE_UNAVAILABLE")
	assert.Contains(t, view, "+28.6")
}

func TestModel_Keys(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard
	m = update(t, m, ReportMsg{Block: 1, Reports: reports()})
	require.Equal(t, 1, m.candidates.Len())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")}, ReportMsg{Block: 2, Reports: reports()})
	assert.True(t, m.paused)
	assert.Equal(t, 1, m.candidates.Len())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Equal(t, 0, m.candidates.Len())

	m = update(t, m, ErrorMsg{Error: errors.New("a")}, ErrorMsg{Error: errors.New("b")},
		ErrorMsg{Error: errors.New("c")}, ErrorMsg{Error: errors.New("d")})
	require.Len(t, m.errors.items(), 3)
	assert.Equal(t, "b", m.errors.items()[0].Message)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Zero(t, m.errors.len())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, next.(Model).quitting)
	assert.NotNil(t, cmd)
}

func TestModel_FailuresOnlyAndSpreads(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 50}, ReportMsg{Block: 7, Reports: reports()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	view := m.View()
	assert.Contains(t, view, "[failures]")
	assert.Contains(t, view, "SOURCE_UNAVAILABLE")
	assert.NotContains(t, view, "3500 USDC")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.False(t, m.showSpreads)
	assert.NotContains(t, m.View(), "+28.6")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	view = m.View()
	assert.Contains(t, view, "3500 USDC")
	assert.Contains(t, view, "+28.6")
}

func TestModel_ReorgShowsInFeed(t *testing.T) {
	m := New()
	m.phase = PhaseDashboard
	m = update(t, m, BlockMsg{Number: 20}, BlockMsg{Number: 20, Reorg: true})

	lines := m.feed.items()
	require.Len(t, lines, 2)
	assert.Equal(t, feedBlock, lines[0].kind)
	assert.Equal(t, feedReorg, lines[1].kind)
	assert.Contains(t, lines[1].text, "#20")
}

func TestRing_KeepsNewest(t *testing.T) {
	r := newRing[int](2)
	for i := 1; i <= 5; i++ {
		r.push(i)
	}
	assert.Equal(t, []int{4, 5}, r.items())
	r.reset()
	assert.Zero(t, r.len())
}
