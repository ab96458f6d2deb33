package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted log entries to a writer, stderr by default.
type ConsoleOutput struct {
	Writer io.Writer
	mu     sync.Mutex
}

// Write writes a formatted entry to the console.
func (o *ConsoleOutput) Write(formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	w := o.Writer
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}
