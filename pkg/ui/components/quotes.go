// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// QuoteRow is the latest combined quote of one watched pair.
type QuoteRow struct {
	Pair     string
	AmountIn string
	Value    string
	Rate     decimal.Decimal
	Selected string
	Error    string
}

// QuotesComponent renders the per-pair quote table.
type QuotesComponent struct {
	rows         []QuoteRow
	block        uint64
	failuresOnly bool
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{}
}

// Update replaces the rows with those of block.
func (q *QuotesComponent) Update(block uint64, rows []QuoteRow) {
	q.block = block
	q.rows = rows
}

// ToggleFailuresOnly hides pairs that quoted successfully, or shows them
// again. It returns the new setting.
func (q *QuotesComponent) ToggleFailuresOnly() bool {
	q.failuresOnly = !q.failuresOnly
	return q.failuresOnly
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	if len(q.rows) == 0 {
		return "Waiting for quotes..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	sourceStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	title := fmt.Sprintf("QUOTES (block #%d)", q.block)
	if q.failuresOnly {
		title += " [failures]"
	}
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %-12s  %-18s  %-20s  %-18s\n", "Pair", "Amount in", "Value", "Source"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 74)) + "\n")

	for _, row := range q.rows {
		if q.failuresOnly && row.Error == "" {
			continue
		}
		if row.Error != "" {
			sb.WriteString(fmt.Sprintf("  %-12s  %-18s  %s\n", row.Pair, row.AmountIn, errorStyle.Render(row.Error)))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-12s  %-18s  %-20s  %s\n",
			row.Pair,
			row.AmountIn,
			row.Value,
			sourceStyle.Render(row.Selected),
		))
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %-12s  rate %s", "", row.Rate.StringFixed(6))) + "\n")
	}
	return sb.String()
}
