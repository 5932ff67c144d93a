package diag

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/logmule/logmule/internal/event"
)

// Channel receives operator-facing diagnostics. Implementations must be
// safe for concurrent use and must never block on network availability.
type Channel interface {
	// Warn reports a recoverable condition (send failed, event dropped).
	Warn(msg string, args ...any)
	// Error reports a condition needing operator attention (clear failed,
	// storage errors).
	Error(msg string, args ...any)
	// Event echoes a producer event in debug mode, at the event's own
	// severity.
	Event(sev event.Severity, msg string, extra json.RawMessage)
}

// Logger is the default Channel, writing to a slog.Logger.
type Logger struct {
	l *slog.Logger
}

// NewLogger wraps l; nil selects slog.Default.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{l: l}
}

func (d *Logger) Warn(msg string, args ...any)  { d.l.Warn(msg, args...) }
func (d *Logger) Error(msg string, args ...any) { d.l.Error(msg, args...) }

func (d *Logger) Event(sev event.Severity, msg string, extra json.RawMessage) {
	line := event.LogEntry{Severity: sev, Message: msg, Extra: extra}.FormatLine()
	switch sev {
	case event.SeverityError:
		d.l.Error("debug event", "line", line)
	case event.SeverityWarning:
		d.l.Warn("debug event", "line", line)
	default:
		d.l.Info("debug event", "line", line)
	}
}

// Record is one captured diagnostic.
type Record struct {
	Level string // "warn", "error" or "event"
	Msg   string
	Line  string // formatted line, set for events only
}

// Recorder is a Channel that captures diagnostics for assertions.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Warn(msg string, args ...any) {
	r.append(Record{Level: "warn", Msg: msg})
}

func (r *Recorder) Error(msg string, args ...any) {
	r.append(Record{Level: "error", Msg: msg})
}

func (r *Recorder) Event(sev event.Severity, msg string, extra json.RawMessage) {
	line := event.LogEntry{Severity: sev, Message: msg, Extra: extra}.FormatLine()
	r.append(Record{Level: "event", Msg: msg, Line: line})
}

func (r *Recorder) append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of everything captured so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns how many records of the given level were captured.
func (r *Recorder) Count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, rec := range r.records {
		if rec.Level == level {
			n++
		}
	}
	return n
}
