// Package transport moves envelopes over a line-delimited stream: a reader
// that decodes one envelope per input line, and a writer that serializes
// concurrent senders so lines are never interleaved.
package transport
