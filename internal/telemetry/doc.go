// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for
// terraform executions.
//
// Both halves degrade to no-ops when disabled so callers never need nil checks:
// a disabled Metrics records nothing and a disabled Tracer hands out spans from
// the global (no-op) provider.
package telemetry
