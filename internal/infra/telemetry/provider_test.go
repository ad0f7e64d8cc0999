package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledProviderUsesGlobalMeter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = "STAGING"

	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.False(t, provider.Enabled())
	require.NotNil(t, provider.Meter("test"))
	require.NoError(t, provider.Shutdown(context.Background()))
	require.Equal(t, "staging", Environment())
}

func TestEnabledWithoutEndpointStaysNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.OTLPEndpoint = "  "

	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.False(t, provider.Enabled())
}

func TestStripScheme(t *testing.T) {
	require.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	require.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	require.Equal(t, "collector:4318", stripScheme(" collector:4318 "))
}

func TestNilProviderIsSafe(t *testing.T) {
	var provider *Provider
	require.False(t, provider.Enabled())
	require.NoError(t, provider.Shutdown(context.Background()))
	require.NotNil(t, provider.Meter("nil"))
}
