// Package audit appends one JSON line per indexing or answering action.
package audit

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger writes audit entries. A nil *Logger discards everything.
type Logger struct {
	mu     sync.Mutex
	log    zerolog.Logger
	closer io.Closer
}

// Open appends to the JSONL file at path, creating it if needed
func Open(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// New writes audit entries to w
func New(w io.Writer) *Logger {
	return &Logger{log: zerolog.New(w).With().Timestamp().Logger()}
}

// Answer records a question and the answer returned for it
func (l *Logger) Answer(question, country string, confidence float64, citations int, degraded bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Info().
		Str("id", uuid.NewString()).
		Str("action", "answer").
		Str("question", question).
		Str("country", country).
		Float64("confidence", confidence).
		Int("citations", citations).
		Bool("degraded", degraded).
		Send()
}

// Index records the outcome of indexing one source
func (l *Logger) Index(url, authority string, chunksIndexed, chunksFailed int, snapshot string, err error) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := l.log.Info().
		Str("id", uuid.NewString()).
		Str("action", "index").
		Str("url", url).
		Str("authority", authority).
		Int("chunks_indexed", chunksIndexed).
		Int("chunks_failed", chunksFailed)
	if snapshot != "" {
		ev = ev.Str("snapshot", snapshot)
	}
	if err != nil {
		ev = ev.Str("error", err.Error())
	}
	ev.Send()
}

// Close closes the underlying file, if any
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
