package session

import "time"

// Clock abstracts the "now" source so timer transitions can be tested
// deterministically. Production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
