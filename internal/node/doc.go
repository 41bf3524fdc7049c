// Package node runs the per-process state machine: the init handshake,
// message id allocation, neighbor selection and the single handler loop that
// feeds every event to the workload service. All replica state lives on the
// handler goroutine; other goroutines reach it only through Inspect.
package node
