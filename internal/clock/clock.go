package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns the wall clock in UTC.
func System() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }
