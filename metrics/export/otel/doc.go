// Package otel bridges sessionkit's in-process counters to OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per sessionkit metric
// and Int64ObservableGauges for the validate-latency histogram buckets. A
// single callback reads [sessionkit.Engine.MetricsSnapshot] on each
// collection cycle, so exporting adds no cost to the session hot path.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider: callers supply the Meter.
//   - Mutate engine state.
package otel
