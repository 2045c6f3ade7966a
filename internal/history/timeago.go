package history

import (
	"fmt"
	"time"
)

// TimeAgo renders how long ago ts was, relative to now
func TimeAgo(ts, now time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "только что"
	case d < time.Hour:
		return fmt.Sprintf("%d мин назад", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d ч назад", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d дн назад", int(d/(24*time.Hour)))
	}
}
