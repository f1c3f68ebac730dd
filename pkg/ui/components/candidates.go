package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// CandidateCell is one source's value in a CandidateRow.
type CandidateCell struct {
	Present   bool
	Selected  bool
	SpreadBps decimal.Decimal
}

// CandidateRow is the per-source breakdown of one pair at one block.
type CandidateRow struct {
	BlockNumber uint64
	Pair        string
	Cells       []CandidateCell
}

// CandidatesComponent renders a scrollable history of candidate spreads.
type CandidatesComponent struct {
	sources []string
	rows    []CandidateRow
	maxRows int
	offset  int
	visible int
}

// NewCandidatesComponent creates a component with one column per source.
func NewCandidatesComponent(sources []string, maxRows int) *CandidatesComponent {
	return &CandidatesComponent{
		sources: sources,
		maxRows: maxRows,
		visible: 10,
	}
}

// Add prepends rows, newest first.
func (c *CandidatesComponent) Add(rows ...CandidateRow) {
	c.rows = append(append([]CandidateRow(nil), rows...), c.rows...)
	if len(c.rows) > c.maxRows {
		c.rows = c.rows[:c.maxRows]
	}
}

// Clear drops the history.
func (c *CandidatesComponent) Clear() {
	c.rows = nil
	c.offset = 0
}

// Len is the number of rows kept.
func (c *CandidatesComponent) Len() int {
	return len(c.rows)
}

// ScrollUp moves the view towards newer rows.
func (c *CandidatesComponent) ScrollUp() {
	if c.offset > 0 {
		c.offset--
	}
}

// ScrollDown moves the view towards older rows.
func (c *CandidatesComponent) ScrollDown() {
	if c.offset < len(c.rows)-c.visible {
		c.offset++
	}
}

// View renders the candidates component.
func (c *CandidatesComponent) View() string {
	if len(c.rows) == 0 {
		return "No candidates yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("CANDIDATES (bps above selected, last %d)", c.maxRows)))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %-9s %-12s", "Block", "Pair"))
	for _, s := range c.sources {
		sb.WriteString(fmt.Sprintf(" %9s", abbreviate(s)))
	}
	sb.WriteString("\n")

	end := c.offset + c.visible
	if end > len(c.rows) {
		end = len(c.rows)
	}
	for _, row := range c.rows[c.offset:end] {
		sb.WriteString(fmt.Sprintf("  %-9d %-12s", row.BlockNumber, row.Pair))
		for _, cell := range row.Cells {
			switch {
			case !cell.Present:
				sb.WriteString(dimStyle.Render(fmt.Sprintf(" %9s", "-")))
			case cell.Selected:
				sb.WriteString(selectedStyle.Render(fmt.Sprintf(" %9s", "● 0.0")))
			default:
				sb.WriteString(fmt.Sprintf(" %9s", "+"+cell.SpreadBps.StringFixed(1)))
			}
		}
		sb.WriteString("\n")
	}
	if len(c.rows) > c.visible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", c.offset+1, end, len(c.rows))))
	}
	return sb.String()
}

func abbreviate(source string) string {
	if len(source) <= 9 {
		return source
	}
	return source[:8] + "."
}
