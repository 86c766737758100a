// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var errSinkClosed = errors.New("write to closed channel sink")

// ChannelSink is a zapcore.WriteSyncer that decodes zap's JSON output into
// LogEntry values on a buffered channel. When the buffer is full the oldest
// entry is discarded so logging never blocks the UI.
type ChannelSink struct {
	mu      sync.Mutex
	entries chan LogEntry
	closed  bool
}

// NewChannelSink creates a sink buffering up to bufferSize entries.
func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{entries: make(chan LogEntry, bufferSize)}
}

// Write implements io.Writer.
func (s *ChannelSink) Write(p []byte) (int, error) {
	entry, err := decodeEntry(p)
	if err != nil {
		// Unparseable lines are dropped rather than failing the logger.
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errSinkClosed
	}

	for {
		select {
		case s.entries <- entry:
			return len(p), nil
		default:
		}
		select {
		case <-s.entries:
		default:
		}
	}
}

// Sync implements zapcore.WriteSyncer.
func (s *ChannelSink) Sync() error { return nil }

// Close closes the entries channel. Safe to call more than once.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	return nil
}

// Entries returns the receive side of the sink.
func (s *ChannelSink) Entries() <-chan LogEntry {
	return s.entries
}

// Drain returns up to max entries that are immediately available.
func Drain(ch <-chan LogEntry, max int) []LogEntry {
	var out []LogEntry
	for len(out) < max {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
	return out
}

func decodeEntry(data []byte) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "app",
		Fields:    make(map[string]any),
	}

	if msg, ok := raw["msg"].(string); ok {
		entry.Message = msg
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = ParseLevel(level)
	}
	if logger, ok := raw["logger"].(string); ok {
		entry.Scope = logger
	}
	if ts, ok := raw["ts"].(float64); ok {
		sec := int64(ts)
		entry.Timestamp = time.Unix(sec, int64((ts-float64(sec))*1e9))
	}

	for _, k := range []string{"msg", "level", "logger", "ts", "caller", "stacktrace"} {
		delete(raw, k)
	}
	for k, v := range raw {
		entry.Fields[k] = v
	}
	return entry, nil
}
