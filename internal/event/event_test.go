package event

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	for _, s := range []string{"info", "warning", "error"} {
		sev, err := ParseSeverity(s)
		if err != nil {
			t.Fatalf("ParseSeverity(%q): %v", s, err)
		}
		if string(sev) != s {
			t.Errorf("ParseSeverity(%q) = %q", s, sev)
		}
	}
	for _, s := range []string{"", "debug", "WARN", "fatal", "Info"} {
		if _, err := ParseSeverity(s); err == nil {
			t.Errorf("ParseSeverity(%q): expected error", s)
		}
	}
}

func TestLogEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   LogEntry
		wantErr bool
	}{
		{"info no extra", LogEntry{Severity: SeverityInfo, Message: "boot"}, false},
		{"warning with object extra", LogEntry{Severity: SeverityWarning, Message: "slow", Extra: json.RawMessage(`{"ms":120}`)}, false},
		{"error with array extra", LogEntry{Severity: SeverityError, Message: "retries", Extra: json.RawMessage(`[1,2,3]`)}, false},
		{"null extra treated as absent", LogEntry{Severity: SeverityInfo, Message: "x", Extra: json.RawMessage(`null`)}, false},
		{"unknown severity", LogEntry{Severity: "fatal", Message: "x"}, true},
		{"empty severity", LogEntry{Message: "x"}, true},
		{"empty message", LogEntry{Severity: SeverityInfo}, true},
		{"string extra", LogEntry{Severity: SeverityInfo, Message: "x", Extra: json.RawMessage(`"ctx"`)}, true},
		{"number extra", LogEntry{Severity: SeverityInfo, Message: "x", Extra: json.RawMessage(`42`)}, true},
		{"bool extra", LogEntry{Severity: SeverityInfo, Message: "x", Extra: json.RawMessage(`true`)}, true},
		{"malformed extra", LogEntry{Severity: SeverityInfo, Message: "x", Extra: json.RawMessage(`{"open":`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name  string
		entry LogEntry
		want  string
	}{
		{
			"no extra",
			LogEntry{Severity: SeverityInfo, Message: "service started"},
			"info - service started - extra data : null",
		},
		{
			"null extra",
			LogEntry{Severity: SeverityError, Message: "disk full", Extra: json.RawMessage(`null`)},
			"error - disk full - extra data : null",
		},
		{
			"object extra is compacted",
			LogEntry{Severity: SeverityWarning, Message: "latency high", Extra: json.RawMessage(`{ "p95": 900,  "unit": "ms" }`)},
			`warning - latency high - extra data : {"p95":900,"unit":"ms"}`,
		},
		{
			"array extra",
			LogEntry{Severity: SeverityInfo, Message: "peers", Extra: json.RawMessage(`["a","b"]`)},
			`info - peers - extra data : ["a","b"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.FormatLine(); got != tt.want {
				t.Errorf("FormatLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatLineShape(t *testing.T) {
	line := LogEntry{Severity: SeverityError, Message: "m", Extra: json.RawMessage(`{"k":1}`)}.FormatLine()
	if !strings.Contains(line, " - extra data : ") {
		t.Fatalf("line missing extra-data separator: %q", line)
	}
	if !strings.HasPrefix(line, "error - ") {
		t.Fatalf("line missing severity prefix: %q", line)
	}
}
