// Package metrics exposes container activity as Prometheus metrics on a
// dedicated registry, served at /metrics by the server binary.
package metrics
