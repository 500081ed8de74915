package service

import "time"

// utcNow is the default clock. Stored timestamps are UTC so that SQLite's
// text comparison agrees with time order.
func utcNow() time.Time {
	return time.Now().UTC().Round(0)
}
