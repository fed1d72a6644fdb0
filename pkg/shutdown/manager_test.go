package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdown_LIFOOrder(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	var order []string
	m.Register("database", func(context.Context) error {
		order = append(order, "database")
		return nil
	})
	m.RegisterCloser("redis", closerFunc(func() error {
		order = append(order, "redis")
		return nil
	}))
	m.RegisterFunc("http", func() { order = append(order, "http") })

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"http", "redis", "database"}, order)
}

func TestShutdown_CollectsErrorsAndContinues(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	boom := errors.New("boom")
	var closed bool
	m.RegisterFunc("first", func() { closed = true })
	m.Register("second", func(context.Context) error { return boom })

	err := m.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "second")
	assert.True(t, closed)
}

func TestShutdown_RunsOnce(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	calls := 0
	m.RegisterFunc("counter", func() { calls++ })

	require.NoError(t, m.Shutdown())
	require.NoError(t, m.Shutdown())
	assert.Equal(t, 1, calls)
}

func TestShutdown_PassesDeadline(t *testing.T) {
	m := NewManager(zap.NewNop(), 50*time.Millisecond)

	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_ContextCancel(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	stopped := make(chan struct{})
	m.RegisterFunc("worker", func() { close(stopped) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.Wait(ctx))
	select {
	case <-stopped:
	default:
		t.Fatal("component was not stopped")
	}
}
