package utils

import (
	"fmt"
	"math"
	"strings"
)

func EscapeMd(s string) string {
	repl := []string{"*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~"}
	r := strings.NewReplacer(repl...)
	return r.Replace(s)
}

// PrettySeconds formats a second count as m:ss, truncating the fraction.
// Minutes are not rolled over into hours.
func PrettySeconds(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	n := int(sec)
	return fmt.Sprintf("%d:%02d", n/60, n%60)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
