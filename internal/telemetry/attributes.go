// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the daemon.
const (
	RemoteOpKey         = "tvserver.op"
	RemoteServiceKey    = "tvserver.service"
	RemoteGenerationKey = "tvserver.generation"
	RemoteResultKey     = "tvserver.result"
	RemoteOutcomeKey    = "tvserver.outcome"

	SourceKey    = "tvinput.source"
	ArbiterOpKey = "tvinput.arbiter_op"
)

// RemoteCallAttributes describes one call on a supervised connection.
func RemoteCallAttributes(service, op string, generation uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RemoteServiceKey, service),
		attribute.String(RemoteOpKey, op),
		attribute.Int64(RemoteGenerationKey, int64(generation)),
	}
}

// RemoteOutcomeAttributes describes how a remote call ended.
func RemoteOutcomeAttributes(outcome string, result int32) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RemoteOutcomeKey, outcome),
		attribute.Int(RemoteResultKey, int(result)),
	}
}

// ArbiterAttributes describes an arbiter operation on a source.
func ArbiterAttributes(op, source string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ArbiterOpKey, op),
		attribute.String(SourceKey, source),
	}
}

// HTTP attribute keys.
const (
	HTTPMethodKey = "http.request.method"
	HTTPRouteKey  = "http.route"
	HTTPStatusKey = "http.response.status_code"
)

// HTTPAttributes describes an HTTP request. A zero status is omitted.
func HTTPAttributes(method, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusKey, status))
	}
	return attrs
}
