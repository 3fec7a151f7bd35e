package postgres

import "time"

// timeOrNow guards against zero timestamps on inserts
func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
