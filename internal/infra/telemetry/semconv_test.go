package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestRequestAttributesCarryEnvironment(t *testing.T) {
	attrs := RequestAttributes("orders", "GET", ResultOK)
	set := attribute.NewSet(attrs...)

	env, ok := set.Value(AttrEnvironment)
	require.True(t, ok)
	require.Equal(t, Environment(), env.AsString())

	resource, ok := set.Value(AttrResource)
	require.True(t, ok)
	require.Equal(t, "orders", resource.AsString())
}

func TestActionAttributesOmitEmptyScreen(t *testing.T) {
	set := attribute.NewSet(ActionAttributes("", "back", ResultOK)...)
	_, ok := set.Value(AttrScreen)
	require.False(t, ok)

	set = attribute.NewSet(ActionAttributes("orders", "submit_ticket", "validation_rejected")...)
	screen, ok := set.Value(AttrScreen)
	require.True(t, ok)
	require.Equal(t, "orders", screen.AsString())
}
