// pattern: Imperative Shell

package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NopLogger returns a logger that discards all output.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{}
}

// TestLogManager is a LoggerProvider for tests. It logs at debug level to a
// channel only.
type TestLogManager struct {
	base *zap.Logger
	sink *ChannelSink

	mu      sync.RWMutex
	loggers map[string]*ScopedLogger
}

// NewTestLogManager creates a TestLogManager buffering bufferSize entries.
func NewTestLogManager(bufferSize int) *TestLogManager {
	sink := NewChannelSink(bufferSize)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(sink), zapcore.DebugLevel)
	return &TestLogManager{
		base:    zap.New(core),
		sink:    sink,
		loggers: make(map[string]*ScopedLogger),
	}
}

// For returns a scoped logger, matching Manager.For.
func (m *TestLogManager) For(scope string) *ScopedLogger {
	return forScope(&m.mu, m.loggers, m.base, zapcore.DebugLevel, scope)
}

// Channel returns the channel receiving log entries.
func (m *TestLogManager) Channel() <-chan LogEntry {
	return m.sink.Entries()
}

// Close closes the underlying channel.
func (m *TestLogManager) Close() error {
	return m.sink.Close()
}
