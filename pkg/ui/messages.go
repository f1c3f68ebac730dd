package ui

import (
	"time"

	"github.com/fd1az/multiprice-oracle/business/watch/domain"
)

// Step names a startup stage shown before the dashboard.
type Step string

const (
	StepConfig   Step = "config"
	StepEthereum Step = "ethereum"
	StepOracle   Step = "oracle"
	StepWatch    Step = "watch"
)

// StepStatus is the progress of one startup stage.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusConnecting StepStatus = "connecting"
	StatusConnected  StepStatus = "connected"
	StatusDone       StepStatus = "done"
	StatusFailed     StepStatus = "failed"
)

// Ready reports whether the stage no longer blocks the dashboard.
func (s StepStatus) Ready() bool {
	return s == StatusConnected || s == StatusDone
}

// ReportMsg carries the combined quotes of every watched pair at one block.
type ReportMsg struct {
	Block   uint64
	Reports []*domain.Report
}

// ConnectionStatusMsg reports the node connection. Name doubles as the
// startup step it resolves when lowercased.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new head arrives.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
	Reorg     bool
}

type ErrorMsg struct {
	Error error
}

// TickMsg drives spinners and the welcome timeout.
type TickMsg struct{}

// LogMsg shows a line in the activity feed.
type LogMsg struct {
	Level   string
	Message string
}

// StartupMsg moves a startup stage to Status.
type StartupMsg struct {
	Step    Step
	Status  StepStatus
	Message string
}
