package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/ratelimit"
)

func TestLimiter_BurstThenBlock(t *testing.T) {
	l := ratelimit.New("eth-rpc", 1, 2)
	assert.False(t, l.Unlimited())

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeRateLimitExceeded, apperror.GetCode(err))
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	l := ratelimit.New("eth-rpc", 0, 0)
	assert.True(t, l.Unlimited())
	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, l.Wait(ctx))
}
