package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus is one upstream as shown in the status bar.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders upstream connections inline. A connected upstream
// that has not been touched for staleAfter is shown as stale.
type StatusComponent struct {
	connections []ConnectionStatus
	staleAfter  time.Duration
	now         func() time.Time
}

func NewStatusComponent(staleAfter time.Duration) *StatusComponent {
	return &StatusComponent{staleAfter: staleAfter, now: time.Now}
}

// Update replaces the entry with the same name, or appends it.
func (s *StatusComponent) Update(status ConnectionStatus) {
	if i := s.index(status.Name); i >= 0 {
		s.connections[i] = status
		return
	}
	s.connections = append(s.connections, status)
}

// Touch records activity on name, e.g. a new block header.
func (s *StatusComponent) Touch(name string, at time.Time) {
	if i := s.index(name); i >= 0 {
		s.connections[i].LastUpdate = at
	}
}

func (s *StatusComponent) Connected(name string) bool {
	i := s.index(name)
	return i >= 0 && s.connections[i].Connected
}

// Stale reports whether a connected upstream has gone quiet.
func (s *StatusComponent) Stale(name string) bool {
	i := s.index(name)
	if i < 0 || s.staleAfter <= 0 {
		return false
	}
	c := s.connections[i]
	return c.Connected && !c.LastUpdate.IsZero() && s.now().Sub(c.LastUpdate) > s.staleAfter
}

func (s *StatusComponent) index(name string) int {
	for i, c := range s.connections {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	up := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	quiet := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	down := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	parts := make([]string, 0, len(s.connections))
	for _, c := range s.connections {
		switch {
		case !c.Connected:
			parts = append(parts, down.Render("○ "+c.Name+" (disconnected)"))
		case s.Stale(c.Name):
			ago := s.now().Sub(c.LastUpdate).Round(time.Second)
			parts = append(parts, quiet.Render(fmt.Sprintf("◐ %s (no block for %s)", c.Name, ago)))
		case c.Latency > 0:
			parts = append(parts, up.Render(fmt.Sprintf("● %s (%dms)", c.Name, c.Latency.Milliseconds())))
		default:
			parts = append(parts, up.Render("● "+c.Name))
		}
	}
	return strings.Join(parts, "  │  ")
}
