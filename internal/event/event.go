package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Severity is the level of a log event. Only the three values below are
// accepted; anything else fails validation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity converts a wire string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityInfo, SeverityWarning, SeverityError:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("event: unknown severity %q", s)
	}
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// LogEntry is one log event as submitted by a producer. Extra carries
// optional structured context; nil or JSON null means absent.
//
// A LogEntry is a value type and is never modified after construction.
type LogEntry struct {
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
	Extra    json.RawMessage `json:"extra,omitempty"`
}

// Validate checks the entry against the producer contract: a known
// severity, a non-empty message (a missing "message" field decodes to the
// empty string, so empty means absent), and Extra either absent or a JSON
// object or array. Scalar extras (strings, numbers, booleans) are rejected
// so that every stored extra stays self-describing.
func (e LogEntry) Validate() error {
	if !e.Severity.Valid() {
		return fmt.Errorf("event: unknown severity %q", string(e.Severity))
	}
	if e.Message == "" {
		return fmt.Errorf("event: empty message")
	}
	if extraAbsent(e.Extra) {
		return nil
	}
	if !json.Valid(e.Extra) {
		return fmt.Errorf("event: extra is not valid JSON")
	}
	switch firstByte(e.Extra) {
	case '{', '[':
		return nil
	}
	return fmt.Errorf("event: extra must be a JSON object or array")
}

// FormatLine renders the entry as the canonical buffered/shipped line:
//
//	<severity> - <message> - extra data : <serialized extra>
//
// Extra is compacted JSON, or the literal "null" when absent.
func (e LogEntry) FormatLine() string {
	extra := "null"
	if !extraAbsent(e.Extra) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, e.Extra); err == nil {
			extra = buf.String()
		} else {
			extra = string(e.Extra)
		}
	}
	return fmt.Sprintf("%s - %s - extra data : %s", e.Severity, e.Message, extra)
}

// extraAbsent reports whether raw carries no extra payload: nil, empty,
// or the JSON null literal.
func extraAbsent(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// firstByte returns the first non-whitespace byte of raw, or 0.
func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
