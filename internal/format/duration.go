// Package format holds small display-formatting helpers shared by the API
// and the chat layer.
package format

import (
	"fmt"
	"math"
)

// Duration renders a seconds count as "H:MM:SS", or "M:SS" when under an
// hour. Components are floor-truncated, never rounded.
func Duration(totalSeconds float64) string {
	if totalSeconds < 0 || math.IsNaN(totalSeconds) || math.IsInf(totalSeconds, 0) {
		totalSeconds = 0
	}
	hours := int(totalSeconds / 3600)
	minutes := int(math.Mod(totalSeconds, 3600) / 60)
	seconds := int(math.Mod(totalSeconds, 60))

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
