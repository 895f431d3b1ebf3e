package security

import (
	"bytes"
	"io"
	"sync"
)

// RedactingWriter scrubs secrets from a byte stream on its way to w.
// Output is buffered up to each newline so a secret split across two
// Write calls is still caught. Close flushes a trailing partial line.
type RedactingWriter struct {
	mu       sync.Mutex
	w        io.Writer
	redactor *Redactor
	buf      bytes.Buffer
}

// NewRedactingWriter wraps w.
func NewRedactingWriter(w io.Writer, redactor *Redactor) *RedactingWriter {
	return &RedactingWriter{w: w, redactor: redactor}
}

// Write implements io.Writer. It always reports len(p) on success.
func (rw *RedactingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.buf.Write(p)
	for {
		i := bytes.IndexByte(rw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := rw.buf.Next(i + 1)
		if err := rw.emit(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close flushes any buffered partial line. It does not close w.
func (rw *RedactingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.buf.Len() == 0 {
		return nil
	}
	line := rw.buf.Next(rw.buf.Len())
	return rw.emit(line)
}

func (rw *RedactingWriter) emit(line []byte) error {
	_, err := io.WriteString(rw.w, rw.redactor.Redact(string(line)))
	return err
}
