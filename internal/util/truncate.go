package util

import "fmt"

// Truncate shortens s to at most max runes, appending a marker with the
// number of characters removed. Non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + fmt.Sprintf("... [truncated %d chars]", len(runes)-max)
}
