// Package ethereum provides the Ethereum node adapters of the chain context.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/multiprice-oracle/business/chain/domain"
	"github.com/fd1az/multiprice-oracle/internal/apm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/circuitbreaker"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

const (
	tracerName = "github.com/fd1az/multiprice-oracle/business/chain/infra/ethereum"
	meterName  = "github.com/fd1az/multiprice-oracle/business/chain/infra/ethereum"
)

// HeadClient is the subset of ethclient.Client used to follow the chain head.
type HeadClient interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// Dialer opens a HeadClient for url.
type Dialer func(ctx context.Context, url string) (HeadClient, error)

// DialEthclient is the production Dialer.
func DialEthclient(ctx context.Context, url string) (HeadClient, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SubscriberConfig holds configuration for the head subscriber.
type SubscriberConfig struct {
	WSURL          string
	HTTPURL        string
	PollInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // ws redials before settling on http polling; 0 = unlimited
	BufferSize     int
}

// DefaultSubscriberConfig returns mainnet-friendly defaults.
func DefaultSubscriberConfig(wsURL, httpURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   12 * time.Second,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  5,
		BufferSize:     16,
	}
}

// headSource delivers chain heads to emit until it fails or ctx ends.
type headSource interface {
	follow(ctx context.Context, emit func(*types.Header)) error
}

// wsHeads follows one newHeads subscription.
type wsHeads struct {
	client HeadClient
	buffer int
}

func (w wsHeads) follow(ctx context.Context, emit func(*types.Header)) error {
	headers := make(chan *types.Header, w.buffer)
	sub, err := w.client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return fmt.Errorf("subscribe new head: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case h := <-headers:
			if h != nil {
				emit(h)
			}
		}
	}
}

// polledHeads asks for the latest header every interval. Failed polls go
// to onError and do not end the loop.
type polledHeads struct {
	client   HeadClient
	interval time.Duration
	breaker  *circuitbreaker.CircuitBreaker[*types.Header]
	onError  func(error)
}

func (p polledHeads) follow(ctx context.Context, emit func(*types.Header)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		h, err := p.breaker.Execute(func() (*types.Header, error) {
			return p.client.HeaderByNumber(ctx, nil)
		})
		if err != nil {
			p.onError(err)
		} else if h != nil {
			emit(h)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

var (
	_ headSource = wsHeads{}
	_ headSource = polledHeads{}
)

type subscriberMetrics struct {
	blocks    metric.Int64Counter
	errors    metric.Int64Counter
	reorgs    metric.Int64Counter
	fallbacks metric.Int64Counter
	state     metric.Int64Gauge
	lag       metric.Float64Histogram
}

// Subscriber follows new chain heads over WebSocket and falls back to
// HTTP polling once the WebSocket reconnect budget is spent. Heads older
// than the last emitted one are dropped unless they replace it, in which
// case they are forwarded with Block.Reorg set.
type Subscriber struct {
	config  SubscriberConfig
	logger  logger.LoggerInterface
	dial    Dialer
	tracer  apm.Tracer
	metrics *subscriberMetrics

	wsCB   *circuitbreaker.CircuitBreaker[*types.Header]
	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	mu         sync.Mutex
	ws         HeadClient
	http       HeadClient
	state      domain.ConnectionState
	usingHTTP  bool
	head       *domain.Block
	seenAt     time.Time
	reconnects int
	reorgs     int

	blocks  chan *domain.Block
	done    chan struct{}
	started atomic.Bool
	closed  atomic.Bool
	closeMu sync.Mutex
	wg      sync.WaitGroup
}

// NewSubscriber creates a head subscriber. A nil dial uses DialEthclient.
func NewSubscriber(cfg SubscriberConfig, dial Dialer, log logger.LoggerInterface) (*Subscriber, error) {
	if dial == nil {
		dial = DialEthclient
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}

	s := &Subscriber{
		config: cfg,
		logger: log,
		dial:   dial,
		tracer: apm.NewTracer(tracerName),
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	onChange := func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	wsCfg := circuitbreaker.DefaultConfig("eth-ws")
	wsCfg.OnStateChange = onChange
	s.wsCB = circuitbreaker.New[*types.Header](wsCfg)

	httpCfg := circuitbreaker.DefaultConfig("eth-http")
	httpCfg.OnStateChange = onChange
	s.httpCB = circuitbreaker.New[*types.Header](httpCfg)

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &subscriberMetrics{}
	var err error

	if m.blocks, err = meter.Int64Counter("eth_blocks_received_total",
		metric.WithDescription("Chain heads forwarded to subscribers"),
		metric.WithUnit("{block}")); err != nil {
		return err
	}
	if m.errors, err = meter.Int64Counter("eth_subscribe_errors_total",
		metric.WithDescription("Head subscription and poll failures"),
		metric.WithUnit("{error}")); err != nil {
		return err
	}
	if m.reorgs, err = meter.Int64Counter("eth_reorgs_total",
		metric.WithDescription("Heads that replaced an already emitted block"),
		metric.WithUnit("{reorg}")); err != nil {
		return err
	}
	if m.fallbacks, err = meter.Int64Counter("eth_http_fallback_total",
		metric.WithDescription("Times HTTP polling took over from WebSocket"),
		metric.WithUnit("{fallback}")); err != nil {
		return err
	}
	if m.state, err = meter.Int64Gauge("eth_connection_state",
		metric.WithDescription("Connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}")); err != nil {
		return err
	}
	if m.lag, err = meter.Float64Histogram("eth_block_latency_ms",
		metric.WithDescription("Delay between block timestamp and receipt"),
		metric.WithUnit("ms")); err != nil {
		return err
	}

	s.metrics = m
	return nil
}

// Subscribe starts following the head and returns the block channel.
// The channel is closed when ctx ends or the subscriber is closed.
func (s *Subscriber) Subscribe(ctx context.Context) (_ <-chan *domain.Block, err error) {
	ctx, span := s.tracer.Start(ctx, "eth.subscribe",
		attribute.Bool("ws_configured", s.config.WSURL != ""),
		attribute.Bool("http_configured", s.config.HTTPURL != ""),
	)
	defer func() {
		span.Finish(err)
		span.End()
	}()

	if s.closed.Load() {
		return nil, errors.New("subscriber is closed")
	}
	if !s.started.CompareAndSwap(false, true) {
		return s.blocks, nil
	}

	s.setState(domain.StateConnecting)

	pollOnly := false
	if err := s.dialWS(ctx); err != nil {
		s.logger.Warn(ctx, "ws connection failed, trying http fallback", "error", err)
		if err := s.dialHTTP(ctx); err != nil {
			s.setState(domain.StateDisconnected)
			s.started.Store(false)
			return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to connect via WS and HTTP"))
		}
		pollOnly = true
	}
	span.SetAttributes(attribute.Bool("poll_only", pollOnly))

	s.wg.Add(1)
	go s.run(ctx, pollOnly)

	s.setState(domain.StateConnected)
	return s.blocks, nil
}

func (s *Subscriber) run(ctx context.Context, pollOnly bool) {
	defer s.wg.Done()
	defer close(s.blocks)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if !pollOnly {
		s.superviseWS(ctx)
	}
	if ctx.Err() != nil {
		return
	}
	s.poll(ctx)
}

// superviseWS keeps a WebSocket subscription alive with exponential
// backoff. It returns when ctx ends or the reconnect budget is spent.
func (s *Subscriber) superviseWS(ctx context.Context) {
	backoff := s.config.InitialBackoff
	failures := 0

	for {
		delivered := false
		err := errors.New("ws client not connected")
		if client := s.client(false); client != nil {
			s.mu.Lock()
			s.usingHTTP = false
			s.mu.Unlock()
			s.setState(domain.StateConnected)

			src := wsHeads{client: client, buffer: s.config.BufferSize}
			err = src.follow(ctx, func(h *types.Header) {
				delivered = true
				s.accept(ctx, h, "ws")
			})
		}
		if ctx.Err() != nil {
			return
		}
		if delivered {
			failures = 0
			backoff = s.config.InitialBackoff
		}
		s.logger.Error(ctx, "ws subscription ended", "error", err)
		s.metrics.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", "ws")))

		failures++
		if s.config.MaxReconnects > 0 && failures > s.config.MaxReconnects {
			s.logger.Warn(ctx, "ws reconnect budget exhausted, switching to http", "attempts", failures-1)
			return
		}

		s.mu.Lock()
		s.reconnects++
		s.mu.Unlock()
		s.setState(domain.StateReconnecting)
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, s.config.MaxBackoff)

		if err := s.dialWS(ctx); err != nil {
			s.logger.Warn(ctx, "ws redial failed", "error", err, "next_backoff", backoff)
		}
	}
}

// poll follows the head over HTTP until ctx ends, dialing first if needed.
func (s *Subscriber) poll(ctx context.Context) {
	backoff := s.config.InitialBackoff
	for s.client(true) == nil {
		if err := s.dialHTTP(ctx); err != nil {
			s.logger.Error(ctx, "http fallback connection failed", "error", err)
			s.setState(domain.StateDisconnected)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.config.MaxBackoff)
		}
	}

	s.mu.Lock()
	s.usingHTTP = true
	s.mu.Unlock()
	s.metrics.fallbacks.Add(ctx, 1)
	s.setState(domain.StateConnected)
	s.logger.Info(ctx, "following head by http polling", "interval", s.config.PollInterval)

	src := polledHeads{
		client:   s.client(true),
		interval: s.config.PollInterval,
		breaker:  s.httpCB,
		onError: func(err error) {
			s.logger.Error(ctx, "http poll failed", "error", err)
			s.metrics.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", "http")))
		},
	}
	_ = src.follow(ctx, func(h *types.Header) { s.accept(ctx, h, "http") })
}

// accept forwards h when it is a new head or replaces the current one.
func (s *Subscriber) accept(ctx context.Context, h *types.Header, via string) {
	if h.Number == nil {
		return
	}
	block := headerToBlock(h)

	s.mu.Lock()
	prev := s.head
	switch {
	case prev == nil:
	case block.Hash == prev.Hash:
		s.mu.Unlock()
		return
	case block.Number <= prev.Number:
		// Same or lower height under a new hash: the tip was replaced.
		block.Reorg = true
	case block.Number == prev.Number+1 && !block.Follows(prev):
		block.Reorg = true
	}
	if block.Reorg {
		s.reorgs++
	}
	s.head = block
	s.seenAt = time.Now()
	s.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("transport", via))
	lag := time.Since(block.Timestamp)
	s.metrics.lag.Record(ctx, float64(lag.Milliseconds()), attrs)
	if block.Reorg {
		s.metrics.reorgs.Add(ctx, 1)
		s.logger.Warn(ctx, "chain reorganised",
			"number", block.Number, "replaced", prev.Hash.Hex(), "hash", block.Hash.Hex())
	}

	select {
	case s.blocks <- block:
		s.metrics.blocks.Add(ctx, 1, attrs)
		s.logger.Debug(ctx, "block received", "number", block.Number, "via", via, "latency_ms", lag.Milliseconds())
	default:
		s.logger.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func (s *Subscriber) client(http bool) HeadClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if http {
		return s.http
	}
	return s.ws
}

func (s *Subscriber) dialWS(ctx context.Context) error {
	if s.config.WSURL == "" {
		return errors.New("ws url not configured")
	}
	client, err := s.dial(ctx, s.config.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}

	s.mu.Lock()
	old := s.ws
	s.ws = client
	s.mu.Unlock()
	if old != nil && old != client {
		old.Close()
	}
	return nil
}

func (s *Subscriber) dialHTTP(ctx context.Context) error {
	if s.config.HTTPURL == "" {
		return errors.New("http url not configured")
	}
	client, err := s.dial(ctx, s.config.HTTPURL)
	if err != nil {
		return fmt.Errorf("dial http: %w", err)
	}

	s.mu.Lock()
	s.http = client
	s.mu.Unlock()
	return nil
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Timestamp:  time.Unix(int64(header.Time), 0),
	}
}

// LatestBlock fetches the current head from whichever client is live.
func (s *Subscriber) LatestBlock(ctx context.Context) (_ *domain.Block, err error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer func() {
		span.Finish(err)
		span.End()
	}()

	s.mu.Lock()
	ws, http, usingHTTP := s.ws, s.http, s.usingHTTP
	s.mu.Unlock()

	var header *types.Header
	if ws != nil && !usingHTTP {
		header, err = s.wsCB.Execute(func() (*types.Header, error) {
			return ws.HeaderByNumber(ctx, nil)
		})
	}
	if header == nil && http != nil {
		header, err = s.httpCB.Execute(func() (*types.Header, error) {
			return http.HeaderByNumber(ctx, nil)
		})
	}

	switch {
	case err != nil:
		return nil, apperror.New(apperror.CodeBlockNotFound,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest block"))
	case header == nil:
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}
	span.SetBlock(header.Number)
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.ConnectionStatus{
		State:      s.state,
		LastUpdate: s.seenAt,
		Reconnects: s.reconnects,
		Reorgs:     s.reorgs,
		UsingHTTP:  s.usingHTTP,
	}
	if s.head != nil {
		st.LastBlock = s.head.Number
	}
	return st
}

// BlockNumber returns the number of the last emitted block.
func (s *Subscriber) BlockNumber() uint64 {
	return s.Status().LastBlock
}

// Close stops the subscription goroutine and releases the clients.
func (s *Subscriber) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info(context.Background(), "closing ethereum subscriber")

	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	ws, http := s.ws, s.http
	s.ws, s.http = nil, nil
	s.mu.Unlock()
	if ws != nil {
		ws.Close()
	}
	if http != nil && http != ws {
		http.Close()
	}

	s.setState(domain.StateDisconnected)
	return nil
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.metrics.state.Record(context.Background(), state.GaugeValue())
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur <= 0 {
		cur = time.Second
	}
	next := cur * 2
	if limit > 0 && next > limit {
		return limit
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
