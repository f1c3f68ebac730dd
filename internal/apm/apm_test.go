package apm_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/multiprice-oracle/internal/apm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	got := apm.ParseHeaders("api-key=abc, x-team=oracle,broken,=x")
	assert.Equal(t, map[string]string{"api-key": "abc", "x-team": "oracle"}, got)
}

func TestNewTraceProvider_UnknownIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelDebug, "test", nil)

	tp, err := apm.NewTraceProvider(log, apm.Config{Provider: "nope"})
	require.NoError(t, err)
	assert.NoError(t, tp.Stop())
	assert.Contains(t, buf.String(), "using empty provider")
}

func TestTracer_FinishRecordsOutcome(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	tracer := apm.NewTracer("test")

	_, failed := tracer.Start(context.Background(), "oracle.cl_twap", attribute.String("in", "0x01"))
	failed.SetBlock(big.NewInt(19_000_000))
	failed.Finish(apperror.New(apperror.CodeInsufficientHistory))
	failed.End()

	_, ok := tracer.Start(context.Background(), "oracle.feed")
	ok.Finish(nil)
	ok.End()

	_, plain := tracer.Start(context.Background(), "oracle.cp_spot")
	plain.Finish(errors.New("boom"))
	plain.End()

	ended := rec.Ended()
	require.Len(t, ended, 3)

	assert.Equal(t, "oracle.cl_twap", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	attrs := attribute.NewSet(ended[0].Attributes()...)
	code, found := attrs.Value(apm.KeyErrorCode)
	require.True(t, found)
	assert.Equal(t, "INSUFFICIENT_HISTORY", code.AsString())
	block, found := attrs.Value(apm.KeyBlock)
	require.True(t, found)
	assert.Equal(t, "19000000", block.AsString())

	assert.Equal(t, codes.Ok, ended[1].Status().Code)

	attrs2 := attribute.NewSet(ended[2].Attributes()...)
	code, found = attrs2.Value(apm.KeyErrorCode)
	require.True(t, found)
	assert.Equal(t, "UNKNOWN_ERROR", code.AsString())
}
