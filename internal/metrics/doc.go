// Package metrics exposes Prometheus counters and histograms for the
// prediction pipeline and the HTTP API.
package metrics
