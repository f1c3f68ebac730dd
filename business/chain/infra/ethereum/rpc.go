package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/circuitbreaker"
	"github.com/fd1az/multiprice-oracle/internal/logger"
	"github.com/fd1az/multiprice-oracle/internal/ratelimit"
)

// Backend is the slice of ethclient the reader needs.
type Backend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

// RPCConfig holds configuration for the RPC reader.
type RPCConfig struct {
	CallTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

type rpcMetrics struct {
	calls   metric.Int64Counter
	latency metric.Float64Histogram
	errors  metric.Int64Counter
}

// RPCReader performs rate-limited, circuit-broken reads against one node.
// Contract reverts pass through untouched and do not count as node failures.
type RPCReader struct {
	backend Backend
	config  RPCConfig
	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter

	callCB   *circuitbreaker.CircuitBreaker[[]byte]
	headerCB *circuitbreaker.CircuitBreaker[*types.Header]

	metrics *rpcMetrics
}

// NewRPCReader wraps backend.
func NewRPCReader(backend Backend, cfg RPCConfig, log logger.LoggerInterface) (*RPCReader, error) {
	r := &RPCReader{
		backend: backend,
		config:  cfg,
		logger:  log,
		limiter: ratelimit.New("eth-rpc", cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	onChange := func(name string, from, to gobreaker.State) {
		r.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	callCfg := circuitbreaker.DefaultConfig("eth-call")
	callCfg.IsSuccessful = func(err error) bool { return err == nil || IsRevert(err) }
	callCfg.OnStateChange = onChange
	r.callCB = circuitbreaker.New[[]byte](callCfg)

	headerCfg := circuitbreaker.DefaultConfig("eth-header")
	headerCfg.OnStateChange = onChange
	r.headerCB = circuitbreaker.New[*types.Header](headerCfg)

	return r, nil
}

func (r *RPCReader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &rpcMetrics{}

	r.metrics.calls, err = meter.Int64Counter(
		"eth_rpc_calls_total",
		metric.WithDescription("Total JSON-RPC reads issued"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"eth_rpc_call_latency_ms",
		metric.WithDescription("JSON-RPC read latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.metrics.errors, err = meter.Int64Counter(
		"eth_rpc_call_errors_total",
		metric.WithDescription("JSON-RPC reads that failed in transport"),
		metric.WithUnit("{error}"),
	)
	return err
}

// HeaderByNumber returns the header at number (nil for latest).
func (r *RPCReader) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	attrs := metric.WithAttributes(attribute.String("method", "eth_getBlockByNumber"))
	start := time.Now()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	header, err := r.headerCB.Execute(func() (*types.Header, error) {
		return r.backend.HeaderByNumber(ctx, number)
	})

	r.metrics.calls.Add(ctx, 1, attrs)
	r.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil {
		r.metrics.errors.Add(ctx, 1, attrs)
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch header"))
	}
	return header, nil
}

// CallContract executes an eth_call pinned at blockNumber.
func (r *RPCReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	attrs := metric.WithAttributes(attribute.String("method", "eth_call"))
	start := time.Now()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := r.callCB.Execute(func() ([]byte, error) {
		return r.backend.CallContract(ctx, msg, blockNumber)
	})

	r.metrics.calls.Add(ctx, 1, attrs)
	r.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	if err != nil && !IsRevert(err) {
		r.metrics.errors.Add(ctx, 1, attrs)
	}
	return out, err
}

// ChainID returns the node's chain id.
func (r *RPCReader) ChainID(ctx context.Context) (*big.Int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.backend.ChainID(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get chain id"))
	}
	return id, nil
}

func (r *RPCReader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.config.CallTimeout)
}

// IsRevert reports whether err is an execution revert returned by the node.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// ZeroAddress is returned by factories for pairs without a pool.
var ZeroAddress = common.Address{}
