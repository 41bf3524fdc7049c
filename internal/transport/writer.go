package transport

import (
	"fmt"
	"io"
	"sync"

	"meshnode/internal/message"
)

// Writer writes one encoded envelope per line. Send is safe for concurrent
// use; each line is written with a single call under the lock.
type Writer struct {
	mu    sync.Mutex
	dst   io.Writer
	codec *message.Codec
	buf   []byte
}

// NewWriter creates a writer over dst.
func NewWriter(dst io.Writer, codec *message.Codec) *Writer {
	return &Writer{dst: dst, codec: codec}
}

// Send encodes env and writes it followed by a newline. Write failures are
// returned to the caller without retry.
func (w *Writer) Send(env message.Envelope) error {
	line, err := w.codec.Encode(env)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf[:0], line...)
	w.buf = append(w.buf, '\n')
	if _, err := w.dst.Write(w.buf); err != nil {
		return fmt.Errorf("write %s to %s: %w", env.Type(), env.Dest, err)
	}
	return nil
}
