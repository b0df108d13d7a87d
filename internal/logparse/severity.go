package logparse

import (
	"regexp"
	"strings"
)

// Levels lists the normalized severities from least to most severe.
var Levels = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// SeverityRegex matches common severity levels in log text.
var SeverityRegex = regexp.MustCompile(`(?i)\b(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|CRITICAL)\b`)

// NormalizeSeverity converts the level names used by log4j, log4net, NLog and
// OTEL into consistent all caps short forms.
func NormalizeSeverity(severity string) string {
	normalized := strings.ToUpper(strings.TrimSpace(severity))

	switch normalized {
	case "TRACE", "TRAC", "TRC", "FINEST", "VERBOSE", "ALL":
		return "TRACE"
	case "DEBUG", "DEBU", "DBG", "DEB", "FINE", "FINER":
		return "DEBUG"
	case "INFO", "INFORMATION", "INF", "NOTICE":
		return "INFO"
	case "WARN", "WARNING", "WRNG", "WRN":
		return "WARN"
	case "ERROR", "ERR", "ERRO", "SEVERE":
		return "ERROR"
	case "FATAL", "FATL", "FTL", "CRITICAL", "CRIT", "CRT", "ALERT", "EMERGENCY":
		return "FATAL"
	case "PANIC", "PNC":
		return "FATAL"
	default:
		if len(normalized) >= 4 {
			prefix := normalized[:4]
			switch prefix {
			case "INFO":
				return "INFO"
			case "WARN":
				return "WARN"
			case "ERRO":
				return "ERROR"
			case "DEBU":
				return "DEBUG"
			case "TRAC":
				return "TRACE"
			case "FATA", "CRIT":
				return "FATAL"
			}
		}
		return "INFO"
	}
}

// ExtractSeverityFromText extracts severity level from log message text.
func ExtractSeverityFromText(message string) string {
	matches := SeverityRegex.FindStringSubmatch(message)
	if len(matches) > 1 {
		return NormalizeSeverity(matches[1])
	}
	return "INFO"
}

// FromSeverityNumber maps an OTEL SeverityNumber (1-24) to a level.
// Zero means unspecified and returns "".
func FromSeverityNumber(n int32) string {
	switch {
	case n <= 0:
		return ""
	case n <= 4:
		return "TRACE"
	case n <= 8:
		return "DEBUG"
	case n <= 12:
		return "INFO"
	case n <= 16:
		return "WARN"
	case n <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// Rank returns the position of a normalized level in Levels.
func Rank(level string) int {
	for i, l := range Levels {
		if l == level {
			return i
		}
	}
	return 2
}

// AtLeast reports whether level is as severe as min.
func AtLeast(level, min string) bool {
	return Rank(NormalizeSeverity(level)) >= Rank(min)
}
