// Package observability records compiler metrics on a private Prometheus
// registry.
package observability
