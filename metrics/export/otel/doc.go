// Package otel exposes engine metrics as OpenTelemetry observable
// counters. Counters are read on collection through a registered
// callback; the engine itself stays free of otel dependencies.
package otel
