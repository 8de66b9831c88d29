package player

import (
	"math"
	"strings"
)

// ProgressBar renders width segments, filling floor(width*progress) of them.
func ProgressBar(width int, progress float64) string {
	if width <= 0 {
		return ""
	}
	if progress < 0 || math.IsNaN(progress) {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	fill := int(float64(width) * progress)
	return strings.Repeat("■", fill) + strings.Repeat("□", width-fill)
}
