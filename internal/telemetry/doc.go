// Package telemetry exposes Prometheus metrics for a node: message traffic
// by type, handler latency and gossip bookkeeping.
package telemetry
