package pyroscope

import (
	"context"
	"testing"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfiler(types ...string) *Profiler {
	cfg := config.GetDefaultConfig()
	cfg.Pyroscope.ProfileTypes = types
	return NewProfiler(cfg, logger.NewNoopLogger())
}

func TestProfileTypes(t *testing.T) {
	assert.Len(t, newProfiler().ProfileTypes(), 6)
	assert.Equal(t,
		[]pyroscope.ProfileType{pyroscope.ProfileMutexCount, pyroscope.ProfileBlockDuration},
		newProfiler("MUTEX_COUNT", "bogus", "block_duration").ProfileTypes(),
	)
}

func TestDisabledProfiler(t *testing.T) {
	p := newProfiler()
	require.False(t, p.Enabled())
	require.NoError(t, p.Start())

	called := false
	p.TagWrapper(context.Background(), map[string]string{"route": "/v1/payments"}, func(context.Context) {
		called = true
	})
	assert.True(t, called)
	assert.NoError(t, p.Stop())
}

func TestLabelPairs(t *testing.T) {
	assert.Equal(t,
		[]string{"method", "POST", "route", "/v1/payments"},
		LabelPairs(map[string]string{"route": "/v1/payments", "method": "POST"}),
	)
}
