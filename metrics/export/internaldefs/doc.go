// Package internaldefs holds the shared metric name/help table used by
// the Prometheus and OpenTelemetry exporters.
package internaldefs
