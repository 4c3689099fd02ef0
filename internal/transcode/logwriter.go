package transcode

import (
	"io"
	"log/slog"
	"strings"
	"sync"
)

const stderrTailBytes = 4096

type logWriterCtx struct {
	logger *slog.Logger
}

// logWriter forwards engine diagnostics to logger at debug level.
func logWriter(l *slog.Logger) io.Writer {
	return logWriterCtx{logger: l}
}

func (l logWriterCtx) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		l.logger.Debug(msg)
	}
	return len(p), nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
