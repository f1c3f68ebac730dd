package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

const instrumentationName = "github.com/fd1az/multiprice-oracle/business/oracle/app"

type engineMetrics struct {
	queries  metric.Int64Counter
	selected metric.Int64Counter
	latency  metric.Float64Histogram
}

// Deps are the chain readers the engine is built on.
type Deps struct {
	Snapshots Snapshotter
	Tokens    TokenReader
	Feeds     FeedRegistry
	CLPools   CLPoolReader
	CPPairs   CPPoolReader
}

// Engine is the query entrypoint. It holds only immutable settings and
// the readers; every call builds its own state pinned to one block.
type Engine struct {
	settings  *Settings
	snapshots Snapshotter
	tokens    TokenReader

	feed     *feedAdapter
	cl       *clAdapter
	cp       *cpAdapter
	selector *selector

	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics *engineMetrics
}

// NewEngine wires the adapters over deps.
func NewEngine(settings *Settings, deps Deps, log logger.LoggerInterface) (*Engine, error) {
	e := &Engine{
		settings:  settings,
		snapshots: deps.Snapshots,
		tokens:    deps.Tokens,
		feed:      newFeedAdapter(settings, deps.Feeds),
		cl:        newCLAdapter(settings, deps.CLPools),
		cp:        newCPAdapter(settings, deps.CPPairs),
		log:       log,
		tracer:    apm.NewTracer(instrumentationName),
	}
	e.selector = &selector{settings: settings, feed: e.feed, cl: e.cl, cp: e.cp, log: log}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(instrumentationName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.queries, err = meter.Int64Counter(
		"oracle_queries_total",
		metric.WithDescription("Price queries by operation and outcome"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	e.metrics.selected, err = meter.Int64Counter(
		"oracle_selected_total",
		metric.WithDescription("Combined quotes by winning source"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"oracle_query_latency_ms",
		metric.WithDescription("Price query latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// FeedQuote converts req.AmountIn of req.In to req.Out using registry feeds.
func (e *Engine) FeedQuote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	return e.single(ctx, "feed", req, nil, func(ctx context.Context, q *query) (*big.Int, domain.Route, error) {
		return e.feed.quote(ctx, q, req.In, req.AmountIn, req.Out)
	})
}

// CLPoolSpotQuote converts at concentrated-liquidity spot prices.
func (e *Engine) CLPoolSpotQuote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	return e.single(ctx, "cl_spot", req, nil, func(ctx context.Context, q *query) (*big.Int, domain.Route, error) {
		return e.cl.spotQuote(ctx, q, req.In, req.AmountIn, req.Out)
	})
}

// CLPoolTwapQuote converts at concentrated-liquidity TWAP prices over window.
func (e *Engine) CLPoolTwapQuote(ctx context.Context, req domain.QuoteRequest, window domain.TwapWindow) (*domain.Quote, error) {
	return e.single(ctx, "cl_twap", req, window.Validate, func(ctx context.Context, q *query) (*big.Int, domain.Route, error) {
		return e.cl.twapQuote(ctx, q, req.In, req.AmountIn, req.Out, window)
	})
}

// CPPoolSpotQuote converts at the reserve ratio of factory's pairs.
func (e *Engine) CPPoolSpotQuote(ctx context.Context, factory common.Address, req domain.QuoteRequest) (*domain.Quote, error) {
	check := func() error {
		if factory == (common.Address{}) {
			return domain.InvalidParameter(apperror.MsgZeroFactory, "factory")
		}
		return nil
	}
	return e.single(ctx, "cp_spot", req, check, func(ctx context.Context, q *query) (*big.Int, domain.Route, error) {
		return e.cp.spotQuote(ctx, q, factory, req.In, req.AmountIn, req.Out)
	})
}

// CombinedQuote evaluates the sources enabled in req.Mask and returns the
// smallest candidate along with every candidate computed.
func (e *Engine) CombinedQuote(ctx context.Context, req domain.CombinedRequest) (*domain.AggregateResult, error) {
	const op = "combined"
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "oracle.combined",
		attribute.String("in", req.In.Hex()),
		attribute.String("out", req.Out.Hex()),
		attribute.Int64("mask", int64(req.Mask)),
		attribute.Int64("window", int64(req.Window)),
	)
	defer span.End()

	res, err := func() (*domain.AggregateResult, error) {
		if err := validateAmount(req.AmountIn); err != nil {
			return nil, err
		}
		buf, err := validateCombined(req)
		if err != nil {
			return nil, err
		}
		q, err := e.begin(ctx)
		if err != nil {
			return nil, err
		}
		return e.selector.combined(ctx, q, req, buf)
	}()

	e.record(ctx, op, start, err)
	span.Finish(err)
	if err != nil {
		return nil, err
	}

	e.metrics.selected.Add(ctx, 1, metric.WithAttributes(attribute.String("source", res.Selected.String())))
	span.SetAttributes(attribute.String("selected", res.Selected.String()))
	span.SetBlock(res.Snapshot.Number)
	e.log.Debug(ctx, "combined quote",
		"in", req.In.Hex(), "out", req.Out.Hex(),
		"selected", res.Selected.String(), "value", res.Value.String(),
		"block", res.Snapshot.Number.String())
	return res, nil
}

type quoteFunc func(ctx context.Context, q *query) (*big.Int, domain.Route, error)

func (e *Engine) single(ctx context.Context, op string, req domain.QuoteRequest, check func() error, fn quoteFunc) (*domain.Quote, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "oracle."+op,
		attribute.String("in", req.In.Hex()),
		attribute.String("out", req.Out.Hex()),
	)
	defer span.End()

	quote, err := func() (*domain.Quote, error) {
		if err := validateAmount(req.AmountIn); err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(); err != nil {
				return nil, err
			}
		}
		q, err := e.begin(ctx)
		if err != nil {
			return nil, err
		}
		v, r, err := fn(ctx, q)
		if err != nil {
			return nil, err
		}
		return &domain.Quote{Amount: v, Route: r, Snapshot: q.at}, nil
	}()

	e.record(ctx, op, start, err)
	span.Finish(err)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("route", quote.Route.String()))
	span.SetBlock(quote.Snapshot.Number)
	return quote, nil
}

// begin pins a new query to the current head.
func (e *Engine) begin(ctx context.Context) (*query, error) {
	at, err := e.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return newQuery(at, e.tokens), nil
}

func (e *Engine) record(ctx context.Context, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperror.GetCode(err))
	}
	attrs := metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", outcome))
	e.metrics.queries.Add(ctx, 1, attrs)
	e.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.InvalidParameter(apperror.MsgNegativeAmount, "amountIn")
	}
	return nil
}

// Settings exposes the immutable configuration.
func (e *Engine) Settings() *Settings { return e.settings }

func (e *Engine) Registry() common.Address { return e.settings.Registry() }
func (e *Engine) CLFactory() common.Address { return e.settings.CLFactory() }
func (e *Engine) CLPoolFee() uint32 { return e.settings.CLPoolFee() }
func (e *Engine) CLOracle() common.Address { return e.settings.CLOracle() }
func (e *Engine) CPFactories() []common.Address { return e.settings.CPFactories() }
func (e *Engine) WETH() common.Address { return e.settings.WETH() }
func (e *Engine) USDEquivalents() []common.Address { return e.settings.USDEquivalents() }

// IsUSDEquivalent reports whether token is priced at par with USD.
func (e *Engine) IsUSDEquivalent(token common.Address) bool {
	return e.settings.IsUSDEquivalent(token)
}
