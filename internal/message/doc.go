// Package message defines the envelope exchanged between nodes and clients,
// the closed set of payload variants, and the line-oriented JSON codec that
// maps the wire "type" tag onto those variants.
package message
