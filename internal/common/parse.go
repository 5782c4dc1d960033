package common

import "strings"

// ToLowerWithTrim normalizes a config-supplied log level string
// ("  DEBUG\n" -> "debug") before comparing it against ValidLogLevels.
func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
