package infra

import (
	"context"
	"sync"
	"time"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
)

// Update is one block's worth of reports as delivered to subscribers.
type Update struct {
	Block   *chaindomain.Block
	Reports []*domain.Report
}

// Broadcaster fans reports out to stream subscribers. Slow subscribers
// miss updates rather than block the watcher.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Update
	last   *Update
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Update)}
}

// Subscribe registers a subscriber with the given channel buffer. The
// latest update, if any, is delivered first. cancel must be called once.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.last != nil {
		ch <- *b.last
	}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Start implements Reporter.
func (b *Broadcaster) Start(ctx context.Context) error { return nil }

// Report publishes one block's reports.
func (b *Broadcaster) Report(block *chaindomain.Block, reports []*domain.Report) {
	u := Update{Block: block, Reports: reports}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &u
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// UpdateConnectionStatus implements Reporter.
func (b *Broadcaster) UpdateConnectionStatus(string, bool, time.Duration) {}

// Stop closes every subscriber channel.
func (b *Broadcaster) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
