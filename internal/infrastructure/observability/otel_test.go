package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	ctx := context.Background()
	providers, err := Init(ctx, Config{Enabled: false})
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Log)
	assert.Same(t, providers.Log, slog.Default())

	assert.NoError(t, providers.Shutdown(ctx))
}

func TestNewResource(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "cadence-test")

	res, err := newResource(context.Background())
	require.NoError(t, err)

	var found bool
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" {
			found = true
			assert.Equal(t, "cadence-test", kv.Value.AsString())
		}
	}
	assert.True(t, found)
}
