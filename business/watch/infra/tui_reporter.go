package infra

import (
	"context"
	"time"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea dashboard. The program
// itself is owned by main; this only sends messages to it.
type TUIReporter struct {
	send func(msg any)
}

// NewTUIReporter creates a TUIReporter that talks to the running ui program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: func(msg any) { ui.Send(msg) }}
}

// Start marks the watcher step as ready.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: ui.StepWatch, Status: ui.StatusDone})
	return nil
}

// Report sends the block and its reports to the dashboard.
func (r *TUIReporter) Report(block *chaindomain.Block, reports []*domain.Report) {
	r.send(ui.BlockMsg{Number: block.Number, Timestamp: block.Timestamp, Reorg: block.Reorg})
	r.send(ui.ReportMsg{Block: block.Number, Reports: reports})
	for _, rep := range reports {
		if !rep.OK() {
			r.send(ui.LogMsg{Level: "warn", Message: rep.Pair.Label() + ": " + rep.Err.Error()})
		}
	}
}

// UpdateConnectionStatus sends connection status to the dashboard.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop is a no-op; main quits the program.
func (r *TUIReporter) Stop() error {
	return nil
}
