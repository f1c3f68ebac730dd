package ui

import (
	"fmt"
	"time"
)

// ring keeps the newest limit items in arrival order.
type ring[T any] struct {
	limit int
	buf   []T
}

func newRing[T any](limit int) ring[T] {
	return ring[T]{limit: limit, buf: make([]T, 0, limit)}
}

func (r *ring[T]) push(v T) {
	r.buf = append(r.buf, v)
	if len(r.buf) > r.limit {
		r.buf = r.buf[len(r.buf)-r.limit:]
	}
}

func (r ring[T]) items() []T { return r.buf }

func (r ring[T]) len() int { return len(r.buf) }

func (r *ring[T]) reset() { r.buf = r.buf[:0] }

type feedKind int

const (
	feedInfo feedKind = iota
	feedBlock
	feedReorg
)

// feedLine is one entry of the activity panel.
type feedLine struct {
	at   time.Time
	kind feedKind
	text string
}

func (l feedLine) render() string {
	s := fmt.Sprintf("  [%s] %s", l.at.Format("15:04:05"), l.text)
	switch l.kind {
	case feedBlock:
		return BlockLineStyle.Render(s)
	case feedReorg:
		return PendingStyle.Render(s)
	default:
		return MutedValue.Render(s)
	}
}

// ErrorEntry is a recent error shown under the dashboard.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}
