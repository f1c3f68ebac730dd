package monolith

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/di"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

type stubModule struct {
	id       string
	startErr error
	trail    *[]string
}

func (m *stubModule) RegisterServices(c di.Container) error {
	c.Register(m.id, m)
	*m.trail = append(*m.trail, "register "+m.id)
	return nil
}

func (m *stubModule) Startup(context.Context, Monolith) error {
	*m.trail = append(*m.trail, "start "+m.id)
	return m.startErr
}

func TestApp_ModulesRunInOrder(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelDebug, "monolith-test", func(context.Context) string { return "" })
	a := newApp(&config.Config{}, log, nil, "test")

	assert.True(t, a.Services().Has("config"))
	assert.True(t, a.Services().Has("health"))
	assert.Equal(t, "test", a.Health().Evaluate(context.Background()).Version)

	var trail []string
	chain := &stubModule{id: "chain", trail: &trail}
	oracle := &stubModule{id: "oracle", trail: &trail}

	require.NoError(t, a.RegisterModules(chain, oracle))
	require.NoError(t, a.StartModules(context.Background(), chain, oracle))
	assert.Equal(t, []string{"register chain", "register oracle", "start chain", "start oracle"}, trail)
	assert.Same(t, oracle, a.Services().Get("oracle"))
	assert.Contains(t, buf.String(), `"module":"monolith"`)
	assert.NoError(t, a.Close())
}

func TestApp_StartStopsAtFirstFailure(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, logger.LevelInfo, "monolith-test", func(context.Context) string { return "" })
	a := newApp(&config.Config{}, log, nil, "test")

	boom := errors.New("boom")
	var trail []string
	err := a.StartModules(context.Background(),
		&stubModule{id: "chain", startErr: boom, trail: &trail},
		&stubModule{id: "oracle", trail: &trail},
	)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "start monolith")
	assert.Equal(t, []string{"start chain"}, trail)
}
