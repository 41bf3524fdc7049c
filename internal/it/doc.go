// Package it runs whole clusters in process over a simulated network that
// can drop, duplicate and reorder messages, and checks that every workload
// converges once the network heals.
package it
