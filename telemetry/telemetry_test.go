package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/amp-uow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "http://collector:4318"

	tc := FromConfig(cfg, "test")
	assert.Equal(t, "uow", tc.ServiceName)
	assert.Equal(t, defaultServiceVersion, tc.ServiceVersion)
	assert.Equal(t, "test", tc.Environment)
	assert.Equal(t, "http://collector:4318", tc.Endpoint)
	assert.True(t, tc.Enabled)
	assert.Equal(t, defaultTimeout, tc.Timeout)
}

func TestInitialize_Disabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []*Config{
		{Enabled: false, Endpoint: "http://collector:4318"},
		{Enabled: true},
	} {
		providers, err := Initialize(t.Context(), cfg)
		require.NoError(t, err)
		assert.False(t, providers.Enabled())
		assert.Nil(t, providers.LogHandler())
		require.NoError(t, providers.Shutdown(t.Context()))
	}
}

func TestInitialize_Enabled(t *testing.T) { //nolint:paralleltest // installs global providers
	providers, err := Initialize(t.Context(), &Config{
		ServiceName: "uow-test",
		Environment: "test",
		Endpoint:    "http://127.0.0.1:4318",
		Enabled:     true,
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	assert.True(t, providers.Enabled())
	assert.NotNil(t, providers.LogHandler())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = providers.Shutdown(ctx)
}
