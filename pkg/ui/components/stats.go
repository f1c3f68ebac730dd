package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Stats are running totals since the dashboard started.
type Stats struct {
	BlocksProcessed int64
	Quotes          int64
	Failed          int64
	AvgLatencyMs    float64

	// Selected counts combined quotes won per source name.
	Selected map[string]int64
}

// StatsComponent renders Stats. Sources fixes the column order of the
// selection breakdown.
type StatsComponent struct {
	stats   Stats
	sources []string
}

func NewStatsComponent(sources []string) *StatsComponent {
	return &StatsComponent{
		stats:   Stats{Selected: make(map[string]int64, len(sources))},
		sources: sources,
	}
}

func (s *StatsComponent) Update(stats Stats) { s.stats = stats }

func (s *StatsComponent) Stats() Stats { return s.stats }

// OKRate is the share of successful quotes in percent.
func (st Stats) OKRate() float64 {
	if st.Quotes == 0 {
		return 0
	}
	return float64(st.Quotes-st.Failed) / float64(st.Quotes) * 100
}

func (s *StatsComponent) View() string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	failed := value
	if s.stats.Failed > 0 {
		failed = bad
	}

	var sb strings.Builder
	sb.WriteString(label.Render("STATS"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Blocks: %s  │  Quotes: %s (%.1f%% ok)  │  Failed: %s  │  Avg latency: %s",
		value.Render(fmt.Sprint(s.stats.BlocksProcessed)),
		value.Render(fmt.Sprint(s.stats.Quotes)),
		s.stats.OKRate(),
		failed.Render(fmt.Sprint(s.stats.Failed)),
		value.Render(fmt.Sprintf("%.0fms", s.stats.AvgLatencyMs)),
	)

	wins := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		if n := s.stats.Selected[src]; n > 0 {
			wins = append(wins, fmt.Sprintf("%s %s", src, value.Render(fmt.Sprint(n))))
		}
	}
	if len(wins) > 0 {
		sb.WriteString("\n" + label.Render("Selected: ") + strings.Join(wins, "  "))
	}
	return sb.String()
}
