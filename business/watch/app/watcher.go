package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

const meterName = "watch"

// WatcherConfig holds the pairs and the quote parameters applied to each.
type WatcherConfig struct {
	// Pairs are watched as given; Specs are resolved on Start and appended.
	Pairs  []domain.Pair
	Specs  []string
	Buffer *big.Int
	Window oracledomain.TwapWindow
	Mask   oracledomain.InclusionMask
	// MaxConcurrent bounds the pairs quoted at once.
	MaxConcurrent int
}

type watcherMetrics struct {
	blocks  metric.Int64Counter
	reports metric.Int64Counter
	latency metric.Float64Histogram
}

// Watcher quotes every configured pair on each new block.
type Watcher struct {
	blocks   BlockSource
	quoter   Quoter
	resolver *PairResolver
	reporter Reporter
	config   WatcherConfig
	logger   logger.LoggerInterface
	metrics  *watcherMetrics

	mu     sync.Mutex
	latest []*domain.Report
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a new Watcher.
func NewWatcher(
	blocks BlockSource,
	quoter Quoter,
	resolver *PairResolver,
	reporter Reporter,
	config WatcherConfig,
	log logger.LoggerInterface,
) (*Watcher, error) {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	w := &Watcher{
		blocks:   blocks,
		quoter:   quoter,
		resolver: resolver,
		reporter: reporter,
		config:   config,
		logger:   log,
	}
	if err := w.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return w, nil
}

func (w *Watcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &watcherMetrics{}

	w.metrics.blocks, err = meter.Int64Counter(
		"watch_blocks_total",
		metric.WithDescription("Blocks processed by the watcher"),
	)
	if err != nil {
		return err
	}

	w.metrics.reports, err = meter.Int64Counter(
		"watch_reports_total",
		metric.WithDescription("Pair quotes produced, by outcome"),
	)
	if err != nil {
		return err
	}

	w.metrics.latency, err = meter.Float64Histogram(
		"watch_block_latency_ms",
		metric.WithDescription("Time to quote every pair for a block"),
		metric.WithUnit("ms"),
	)
	return err
}

// Start subscribes to new blocks and begins quoting.
func (w *Watcher) Start(ctx context.Context) error {
	if len(w.config.Specs) > 0 {
		if w.resolver == nil {
			return fmt.Errorf("watch pairs %v need a resolver", w.config.Specs)
		}
		pairs, err := w.resolver.Resolve(ctx, w.config.Specs)
		if err != nil {
			return err
		}
		w.mu.Lock()
		w.config.Pairs = append(w.config.Pairs, pairs...)
		w.config.Specs = nil
		w.mu.Unlock()
	}

	w.logger.Info(ctx, "starting watcher", "pairs", len(w.config.Pairs))

	ctx, cancel := context.WithCancel(ctx)

	blocks, err := w.blocks.SubscribeBlocks(ctx)
	if err != nil {
		cancel()
		return err
	}

	if err := w.reporter.Start(ctx); err != nil {
		cancel()
		return err
	}

	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx, blocks)

	return nil
}

func (w *Watcher) run(ctx context.Context, blocks <-chan *chaindomain.Block) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "watcher stopping", "reason", ctx.Err())
			return
		case block, ok := <-blocks:
			if !ok {
				w.logger.Warn(ctx, "block stream closed")
				return
			}
			if block != nil {
				w.OnBlock(ctx, block)
			}
		}
	}
}

// OnBlock quotes every pair and hands the reports to the reporter.
func (w *Watcher) OnBlock(ctx context.Context, block *chaindomain.Block) []*domain.Report {
	start := time.Now()

	st := w.blocks.Status()
	if block.Reorg {
		// Earlier reports may describe an orphaned block; the pass below replaces them.
		w.logger.Info(ctx, "chain reorganised, requoting", "block", block.Number, "reorgs", st.Reorgs)
	}
	w.reporter.UpdateConnectionStatus("Ethereum", st.State == chaindomain.StateConnected, 0)

	pairs := w.Pairs()
	reports := make([]*domain.Report, len(pairs))
	var g errgroup.Group
	g.SetLimit(w.config.MaxConcurrent)
	for i, pair := range pairs {
		g.Go(func() error {
			reports[i] = w.quote(ctx, block, pair)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range reports {
		outcome := "ok"
		if !r.OK() {
			outcome = r.ErrorCode()
			w.logger.Warn(ctx, "watch quote failed",
				"block", block.Number, "pair", r.Pair.Label(), "error", r.Err)
		}
		w.metrics.reports.Add(ctx, 1, metric.WithAttributes(
			attribute.String("pair", r.Pair.Label()),
			attribute.String("outcome", outcome),
		))
	}
	w.metrics.blocks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("reorg", block.Reorg)))
	w.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	w.mu.Lock()
	w.latest = reports
	w.mu.Unlock()

	w.reporter.Report(block, reports)
	return reports
}

func (w *Watcher) quote(ctx context.Context, block *chaindomain.Block, pair domain.Pair) *domain.Report {
	start := time.Now()
	res, err := w.quoter.CombinedQuote(ctx, oracledomain.CombinedRequest{
		QuoteRequest: oracledomain.QuoteRequest{
			In:       pair.In.Address(),
			AmountIn: pair.AmountIn.Raw(),
			Out:      pair.Out.Address(),
		},
		Buffer: w.config.Buffer,
		Window: w.config.Window,
		Mask:   w.config.Mask,
	})
	rep := &domain.Report{
		Block:     block.Number,
		BlockTime: block.Timestamp,
		Pair:      pair,
		Result:    res,
		Err:       err,
		Latency:   time.Since(start),
	}
	// The quote pins its own head, which may be newer than the one that
	// triggered this pass.
	if res != nil && res.Snapshot.Number != nil {
		rep.Block = res.Snapshot.Number.Uint64()
		rep.BlockTime = time.Unix(int64(res.Snapshot.Time), 0)
	}
	return rep
}

// Latest returns the reports of the last processed block.
func (w *Watcher) Latest() []*domain.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*domain.Report(nil), w.latest...)
}

// Pairs returns the watched pairs.
func (w *Watcher) Pairs() []domain.Pair {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Pair(nil), w.config.Pairs...)
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	w.logger.Info(context.Background(), "stopping watcher")
	return w.reporter.Stop()
}
