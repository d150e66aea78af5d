package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGateSingleFlight(t *testing.T) {
	gate := NewGate("tenants", DefaultGateConfig(), zap.NewNop())

	require.True(t, gate.Enter())
	assert.False(t, gate.Enter(), "second caller must be rejected while the first is inside")

	gate.Leave()
	assert.True(t, gate.Enter(), "gate must admit again after Leave")
	gate.Leave()

	metrics := gate.GetMetrics()
	assert.Equal(t, uint64(2), metrics.Admitted)
	assert.Equal(t, uint64(1), metrics.Rejected)
	assert.Equal(t, int64(0), metrics.Active)
}

func TestGateExecute(t *testing.T) {
	gate := NewGate("config", DefaultGateConfig(), nil)
	ctx := context.Background()

	t.Run("RunsFunction", func(t *testing.T) {
		called := false
		err := gate.Execute(ctx, func(ctx context.Context) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("RejectsNestedCall", func(t *testing.T) {
		var inner error
		err := gate.Execute(ctx, func(ctx context.Context) error {
			inner = gate.Execute(ctx, func(ctx context.Context) error { return nil })
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, errors.Is(inner, ErrInFlight))
	})

	t.Run("PropagatesError", func(t *testing.T) {
		boom := errors.New("boom")
		err := gate.Execute(ctx, func(ctx context.Context) error { return boom })
		assert.Equal(t, boom, err)
		assert.Equal(t, int64(0), gate.GetMetrics().Active)
	})
}

func TestGateInvalidConfigDefaultsToOne(t *testing.T) {
	gate := NewGate("zero", GateConfig{MaxInFlight: 0}, nil)
	require.True(t, gate.Enter())
	assert.False(t, gate.Enter())
	gate.Leave()
}
