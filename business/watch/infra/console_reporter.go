// Package infra contains the reporters that publish watch results.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer

	mu     sync.Mutex
	status map[string]bool
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		status: make(map[string]bool),
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Multiprice Oracle Watcher Started")
	fmt.Fprintln(r.out, "=================================")
	return nil
}

// Report prints the quotes of one block.
func (r *ConsoleReporter) Report(block *chaindomain.Block, reports []*domain.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Block:          #%d (%s)\n", block.Number, block.Timestamp.Format(time.RFC3339))
	for _, rep := range reports {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(r.out, "Pair:           %s\n", rep.Pair.String())
		if !rep.OK() {
			fmt.Fprintf(r.out, "  Error:        [%s] %v\n", rep.ErrorCode(), rep.Err)
			continue
		}
		fmt.Fprintf(r.out, "  Value:        %s via %s\n", rep.Value().String(), rep.Result.Selected)
		fmt.Fprintf(r.out, "  Rate:         %s\n", rep.Rate().StringFixed(6))
		for _, src := range oracledomain.AllSources() {
			c, ok := rep.Candidate(src)
			if !ok {
				fmt.Fprintf(r.out, "  %-18s -\n", src.String()+":")
				continue
			}
			marker := ""
			if src == rep.Result.Selected {
				marker = " *"
			}
			bps, _ := rep.SpreadBps(src)
			fmt.Fprintf(r.out, "  %-18s %s (+%s bps)%s\n", src.String()+":", c.String(), bps.StringFixed(1), marker)
		}
		fmt.Fprintf(r.out, "  Latency:      %s\n", rep.Latency.Round(time.Millisecond))
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// UpdateConnectionStatus prints connection changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, seen := r.status[name]; seen && prev == connected {
		return
	}
	r.status[name] = connected

	status := "disconnected"
	if connected {
		status = "connected"
		if latency > 0 {
			status = fmt.Sprintf("connected (%s)", latency)
		}
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Multiprice Oracle Watcher Stopped")
	return nil
}
