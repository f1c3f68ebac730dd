// Package evm issues ABI-encoded contract reads pinned at a query snapshot.
package evm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

const meterName = "oracle-evm"

// RevertError is a contract call that executed and reverted.
type RevertError struct {
	Method string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return e.Method + ": execution reverted"
	}
	return e.Method + ": execution reverted: " + e.Reason
}

// AsRevert unwraps a RevertError from err.
func AsRevert(err error) (*RevertError, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev, true
	}
	return nil, false
}

type callerMetrics struct {
	calls   metric.Int64Counter
	latency metric.Float64Histogram
	errors  metric.Int64Counter
}

// Caller packs, sends and unpacks contract reads for one component.
type Caller struct {
	reader    chainapp.ChainReader
	component string
	tracer    apm.Tracer
	metrics   *callerMetrics
}

// NewCaller creates a caller whose spans and metrics are labelled component.
func NewCaller(reader chainapp.ChainReader, component string) (*Caller, error) {
	c := &Caller{
		reader:    reader,
		component: component,
		tracer:    apm.NewTracer("oracle." + component),
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func (c *Caller) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &callerMetrics{}

	c.metrics.calls, err = meter.Int64Counter(
		"oracle_contract_calls_total",
		metric.WithDescription("Total contract reads issued by price sources"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"oracle_contract_call_latency_ms",
		metric.WithDescription("Contract read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.errors, err = meter.Int64Counter(
		"oracle_contract_call_errors_total",
		metric.WithDescription("Contract reads that failed or reverted"),
	)
	return err
}

// Call invokes method on to at block at and returns the decoded outputs.
// A revert comes back as *RevertError; transport failures as
// CodeContractCallFailed; malformed return data as CodeContractDecodeFailed.
func (c *Caller) Call(ctx context.Context, at domain.Snapshot, to common.Address, contract *abi.ABI, method string, args ...any) ([]any, error) {
	ctx, span := c.tracer.Start(ctx, c.component+"."+method, attribute.String("to", to.Hex()))
	span.SetBlock(at.Number)
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("component", c.component),
		attribute.String("method", method),
	)
	start := time.Now()
	c.metrics.calls.Add(ctx, 1, attrs)

	out, err := c.call(ctx, at, to, contract, method, args...)

	c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	span.Finish(err)
	if err != nil {
		c.metrics.errors.Add(ctx, 1, attrs)
		return nil, err
	}
	return out, nil
}

func (c *Caller) call(ctx context.Context, at domain.Snapshot, to common.Address, contract *abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("pack "+method))
	}

	raw, err := c.reader.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, at.Number)
	if err != nil {
		if reason, ok := revertReason(err); ok {
			return nil, &RevertError{Method: method, Reason: reason}
		}
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method+" on "+to.Hex()))
	}

	// Calls to an address without code succeed with empty return data.
	if len(raw) == 0 {
		return nil, &RevertError{Method: method}
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractDecodeFailed,
			apperror.WithCause(err),
			apperror.WithContext(method+" on "+to.Hex()))
	}
	return out, nil
}

// revertReason reports whether err is an execution revert, decoding the
// Error(string) reason when the node returned one.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason, true
				}
			}
		}
		return messageReason(err.Error()), true
	}

	if strings.Contains(err.Error(), "execution reverted") {
		return messageReason(err.Error()), true
	}
	return "", false
}

func messageReason(msg string) string {
	const prefix = "execution reverted"
	i := strings.Index(msg, prefix)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(msg[i+len(prefix):], ":"))
}

// MustParseABI parses a JSON ABI known at compile time.
func MustParseABI(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return &parsed
}
