package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TextFormatter formats log entries as human-readable text.
type TextFormatter struct {
	// DisableColors disables ANSI color codes in the output.
	DisableColors bool
	// TimestampFormat overrides the default timestamp layout.
	TimestampFormat string
}

// Format renders the entry as "TIME LEVEL message key=value ...".
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339
	}

	var buf bytes.Buffer
	buf.WriteString(entry.Timestamp.Format(layout))
	buf.WriteByte(' ')

	level := entry.Level.String()
	if f.DisableColors {
		buf.WriteString(level)
	} else {
		buf.WriteString(colorForLevel(entry.Level))
		buf.WriteString(level)
		buf.WriteString("\033[0m")
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	for _, field := range entry.Fields {
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		fmt.Fprintf(&buf, "%v", field.Value)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func colorForLevel(level Level) string {
	switch level {
	case DebugLevel:
		return "\033[36m" // cyan
	case InfoLevel:
		return "\033[32m" // green
	case WarnLevel:
		return "\033[33m" // yellow
	case ErrorLevel, FatalLevel:
		return "\033[31m" // red
	default:
		return "\033[0m"
	}
}

// JSONFormatter formats log entries as single-line JSON documents.
type JSONFormatter struct{}

// Format renders the entry as JSON with level, time, message and fields.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	record := map[string]interface{}{
		"level": entry.Level.String(),
		"time":  entry.Timestamp.Format(time.RFC3339Nano),
		"msg":   entry.Message,
	}
	for _, field := range entry.Fields {
		record[field.Key] = field.Value
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
