package logparse

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Standard forms
		{"TRACE", "TRACE"}, {"DEBUG", "DEBUG"}, {"INFO", "INFO"},
		{"WARN", "WARN"}, {"ERROR", "ERROR"}, {"FATAL", "FATAL"},
		// Variants
		{"TRAC", "TRACE"}, {"TRC", "TRACE"},
		{"DEBU", "DEBUG"}, {"DBG", "DEBUG"}, {"DEB", "DEBUG"},
		{"INFORMATION", "INFO"}, {"INF", "INFO"},
		{"WARNING", "WARN"}, {"WRNG", "WARN"}, {"WRN", "WARN"},
		{"ERR", "ERROR"}, {"ERRO", "ERROR"},
		{"FATL", "FATAL"}, {"FTL", "FATAL"},
		{"CRITICAL", "FATAL"}, {"CRIT", "FATAL"}, {"CRT", "FATAL"},
		{"PANIC", "FATAL"}, {"PNC", "FATAL"},
		// Case insensitive
		{"info", "INFO"}, {"warn", "WARN"}, {"error", "ERROR"},
		{"debug", "DEBUG"}, {"trace", "TRACE"}, {"fatal", "FATAL"},
		// Prefix matching
		{"INFORMATION_EXTRA", "INFO"}, {"WARNING_LEVEL", "WARN"},
		{"ERROR_CODE_42", "ERROR"}, {"DEBUG_VERBOSE", "DEBUG"},
		{"TRACE_ALL", "TRACE"}, {"FATAL_CRASH", "FATAL"},
		{"CRITICAL_ALERT", "FATAL"},
		// log4net, NLog and java.util.logging names
		{"NOTICE", "INFO"}, {"VERBOSE", "TRACE"}, {"FINE", "DEBUG"},
		{"SEVERE", "ERROR"}, {"ALERT", "FATAL"}, {"EMERGENCY", "FATAL"},
		{"Info", "INFO"}, {"Warn", "WARN"},
		// Unknown defaults to INFO
		{"", "INFO"}, {"UNKNOWN", "INFO"}, {"foo", "INFO"},
		// Whitespace
		{"  INFO  ", "INFO"}, {"\tWARN\t", "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeSeverity(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeSeverity(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractSeverityFromText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2024-01-01 INFO Starting server", "INFO"},
		{"ERROR: connection refused", "ERROR"},
		{"[WARN] disk usage high", "WARN"},
		{"WARNING deprecated API", "WARN"},
		{"CRITICAL system failure", "FATAL"},
		{"no severity here", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExtractSeverityFromText(tt.input)
			if got != tt.expected {
				t.Errorf("ExtractSeverityFromText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromSeverityNumber(t *testing.T) {
	tests := []struct {
		n    int32
		want string
	}{
		{0, ""}, {1, "TRACE"}, {4, "TRACE"}, {5, "DEBUG"}, {9, "INFO"},
		{12, "INFO"}, {13, "WARN"}, {17, "ERROR"}, {21, "FATAL"}, {24, "FATAL"},
	}
	for _, tt := range tests {
		if got := FromSeverityNumber(tt.n); got != tt.want {
			t.Errorf("FromSeverityNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast("error", "WARN") {
		t.Error("ERROR should be at least WARN")
	}
	if AtLeast("debug", "WARN") {
		t.Error("DEBUG should not be at least WARN")
	}
	if !AtLeast("WARN", "WARN") {
		t.Error("WARN should be at least WARN")
	}
}
