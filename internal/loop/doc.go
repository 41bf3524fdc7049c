// Package loop produces the single ordered event stream consumed by a node's
// handler goroutine. Inbound envelopes and ticks from an armed Ticker are
// merged by a Multiplexer; all concurrency lives in the producers so the
// consumer can own replica state without locks.
package loop
