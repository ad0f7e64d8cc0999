// Package telemetry provides OpenTelemetry setup and attribute conventions for the desk.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys follow OpenTelemetry naming: namespace.attribute_name.
const (
	// AttrEnvironment specifies the deployment environment (dev/staging/prod) for every metric.
	AttrEnvironment = attribute.Key("environment")
	// AttrResource names the gateway resource a request addressed (orders, executions, ...).
	AttrResource = attribute.Key("resource")
	// AttrMethod records the HTTP verb used against the gateway.
	AttrMethod = attribute.Key("http.method")
	// AttrResult records the outcome of an operation (ok or an error code).
	AttrResult = attribute.Key("result")
	// AttrCollection labels poller signals by collection name.
	AttrCollection = attribute.Key("collection")
	// AttrAction identifies the desk action dispatched from a view.
	AttrAction = attribute.Key("action")
	// AttrScreen identifies the mounted screen.
	AttrScreen = attribute.Key("screen")
)

// ResultOK is the result attribute value for successful operations.
const ResultOK = "ok"

// RequestAttributes returns attributes for gateway request metrics.
func RequestAttributes(resource, method, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrResource.String(resource),
		AttrMethod.String(method),
		AttrResult.String(result),
	}
}

// CollectionAttributes returns attributes for per-collection poll metrics.
func CollectionAttributes(collection string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrCollection.String(collection),
	}
}

// ActionAttributes returns attributes for desk action metrics.
func ActionAttributes(screen, action, result string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrAction.String(action),
		AttrResult.String(result),
	}
	if screen != "" {
		attrs = append(attrs, AttrScreen.String(screen))
	}
	return attrs
}
