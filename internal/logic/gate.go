package logic

import "time"

// ShouldLog reports whether a new observation is due. A zero last means no
// observation has been recorded.
func ShouldLog(last, now time.Time, interval time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= interval
}
