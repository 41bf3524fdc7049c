package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"meshnode/internal/message"
)

// MaxLineSize bounds a single inbound line.
const MaxLineSize = 1 << 20

// Reader decodes envelopes from a line-delimited stream.
type Reader struct {
	src    io.Reader
	codec  *message.Codec
	logger *zap.Logger
}

// NewReader creates a reader over src.
func NewReader(src io.Reader, codec *message.Codec, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{src: src, codec: codec, logger: logger.Named("reader")}
}

// Run reads until end of input, forwarding each decoded envelope to out.
// out is closed when Run returns. End of input returns nil; a line that
// fails to decode stops the reader and returns the decode error, since a
// line-oriented stream cannot be resynchronized.
func (r *Reader) Run(ctx context.Context, out chan<- message.Envelope) error {
	defer close(out)

	scanner := bufio.NewScanner(r.src)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		env, err := r.codec.Decode(raw)
		if err != nil {
			return fmt.Errorf("input line %d: %w", line, err)
		}
		r.logger.Debug("received", zap.String("src", env.Src), zap.String("type", env.Type()))

		select {
		case out <- env:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	r.logger.Info("end of input", zap.Int("lines", line))
	return nil
}
