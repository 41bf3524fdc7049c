// Package storage provides the in-memory keyed logs behind the kafka-style
// workload. Each key holds an append-only sequence of messages addressed by
// offset plus a committed high-water mark. Offsets are striped across the
// cluster so replicas can merge logs without collisions.
package storage
