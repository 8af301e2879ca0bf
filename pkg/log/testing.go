package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// TestLogger is a Logger for tests. Records are rendered by the slog JSON
// handler into a shared Buffer, one object per line, without timestamps.
type TestLogger struct {
	*SlogLogger
	out *Buffer
}

// Buffer collects log output. It is safe to read while other goroutines
// are logging.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns a copy of everything written so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// NewTestLogger returns a TestLogger at level and the buffer it writes to.
//
//	logger, buffer := log.NewTestLogger(log.LevelDebug)
//	p := pipeline.New(st, pipeline.WithLogger(logger))
func NewTestLogger(level Level) (*TestLogger, *Buffer) {
	out := &Buffer{}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slog.Level(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	})
	return &TestLogger{
		SlogLogger: &SlogLogger{sl: slog.New(WrapByErrFmtHandler(handler))},
		out:        out,
	}, out
}

// With keeps the shared buffer so the parent can inspect child records.
func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{
		SlogLogger: &SlogLogger{sl: t.sl.With(slogArgs(fields)...)},
		out:        t.out,
	}
}

// GetLogEntries decodes every captured record.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	sc := bufio.NewScanner(strings.NewReader(t.out.String()))
	sc.Buffer(nil, 1<<20)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// ContainsMessage reports whether message occurs anywhere in the output.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.out.String(), message)
}

// ContainsField reports whether some record has key set to value. Numbers
// decode as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	return t.count(func(e map[string]interface{}) bool {
		v, ok := e[key]
		return ok && v == value
	}) > 0
}

// CountMessages counts the records whose message is exactly message.
func (t *TestLogger) CountMessages(message string) int {
	return t.count(func(e map[string]interface{}) bool {
		return e["message"] == message
	})
}

func (t *TestLogger) count(match func(map[string]interface{}) bool) int {
	entries, err := t.GetLogEntries()
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if match(e) {
			n++
		}
	}
	return n
}
