package media

import (
	"math"
	"time"
)

// EstimateProgress estimates a processing percentage from elapsed time.
// Fast at first, then slowing down; it never reaches 100 so the real
// completion stays visible.
func EstimateProgress(elapsed time.Duration) float64 {
	elapsedSeconds := elapsed.Seconds()
	if elapsedSeconds <= 0 {
		return 0
	}

	if elapsedSeconds < 1.0 {
		// First second: 0-10%
		return elapsedSeconds * 10.0
	} else if elapsedSeconds < 5.0 {
		// 1-5 seconds: 10-50%
		return 10.0 + (elapsedSeconds-1.0)*10.0
	} else if elapsedSeconds < 15.0 {
		// 5-15 seconds: 50-80%
		return 50.0 + (elapsedSeconds-5.0)*3.0
	} else if elapsedSeconds < 30.0 {
		// 15-30 seconds: 80-90%
		return 80.0 + (elapsedSeconds-15.0)*(10.0/15.0)
	}
	// > 30 seconds: 90-95%
	return 90.0 + (5.0 * (1.0 - (30.0 / math.Max(elapsedSeconds, 30.0))))
}
