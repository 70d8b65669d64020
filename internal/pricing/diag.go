package pricing

import (
	"log"
	"sync"
)

// Reporter receives data-quality notices from a Calculator.
type Reporter interface {
	Notice(key, message string)
}

// Notice is one reported data gap.
type Notice struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Diagnostics logs each (key, message) pair once for its lifetime and keeps
// the notices it has seen.
type Diagnostics struct {
	logger *log.Logger

	mu      sync.Mutex
	seen    map[Notice]struct{}
	notices []Notice
}

// NewDiagnostics returns a Diagnostics writing to logger, or to the standard
// logger when logger is nil.
func NewDiagnostics(logger *log.Logger) *Diagnostics {
	if logger == nil {
		logger = log.Default()
	}
	return &Diagnostics{logger: logger, seen: make(map[Notice]struct{})}
}

// Notice records and logs a notice unless the same key and message were
// already seen by d.
func (d *Diagnostics) Notice(key, message string) {
	n := Notice{Key: key, Message: message}

	d.mu.Lock()
	if _, dup := d.seen[n]; dup {
		d.mu.Unlock()
		return
	}
	d.seen[n] = struct{}{}
	d.notices = append(d.notices, n)
	d.mu.Unlock()

	d.logger.Printf("pricing: %s: %s", key, message)
}

// Notices returns the distinct notices in the order they were first seen.
func (d *Diagnostics) Notices() []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Notice, len(d.notices))
	copy(out, d.notices)
	return out
}
