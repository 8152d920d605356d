package runner

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = w.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors.
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

// sink serialises writes from the stdout and stderr copy goroutines.
type sink struct {
	mu   sync.Mutex
	log  zerolog.Logger
	echo io.Writer
}

func (s *sink) chunk(stream string, level zerolog.Level, p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.echo != nil {
		_, _ = s.echo.Write(p)
	}
	if msg := strings.TrimRight(string(p), "\r\n"); msg != "" {
		s.log.WithLevel(level).Str("stream", stream).Msg(msg)
	}
}

// streamWriter forwards every chunk to the sink as it arrives.
type streamWriter struct {
	sink   *sink
	stream string
	level  zerolog.Level
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.sink.chunk(w.stream, w.level, p)
	return len(p), nil
}
