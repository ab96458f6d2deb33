package log

import "sync"

// TestLogger is a Logger implementation that records entries for assertions
// in tests. It is safe for concurrent use.
type TestLogger struct {
	mu      sync.Mutex
	level   Level
	fields  []Field
	entries *[]Entry
}

// NewTestLogger creates a logger that captures every entry it receives.
func NewTestLogger() *TestLogger {
	entries := make([]Entry, 0)
	return &TestLogger{level: DebugLevel, entries: &entries}
}

// Entries returns a copy of the recorded entries.
func (l *TestLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(*l.entries))
	copy(out, *l.entries)
	return out
}

func (l *TestLogger) record(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, Entry{
		Level:   level,
		Message: msg,
		Fields:  append(append([]Field{}, l.fields...), fields...),
	})
}

func (l *TestLogger) Debug(msg string, fields ...Field) { l.record(DebugLevel, msg, fields) }
func (l *TestLogger) Info(msg string, fields ...Field)  { l.record(InfoLevel, msg, fields) }
func (l *TestLogger) Warn(msg string, fields ...Field)  { l.record(WarnLevel, msg, fields) }
func (l *TestLogger) Error(msg string, fields ...Field) { l.record(ErrorLevel, msg, fields) }
func (l *TestLogger) Fatal(msg string, fields ...Field) { l.record(FatalLevel, msg, fields) }

func (l *TestLogger) With(fields ...Field) Logger {
	clone := &TestLogger{level: l.level, entries: l.entries}
	clone.fields = append(append([]Field{}, l.fields...), fields...)
	return clone
}

func (l *TestLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

func (l *TestLogger) SetLevel(level Level) { l.level = level }
func (l *TestLogger) GetLevel() Level      { return l.level }
