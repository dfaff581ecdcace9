// Package prometheus renders engine metrics in the Prometheus text
// exposition format without pulling in a client library.
package prometheus
