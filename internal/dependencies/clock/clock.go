package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time

	// Since returns the elapsed time since t
	Since(t time.Time) time.Duration

	// NowMillis returns the current time in unix milliseconds, the unit used
	// on the wire for ping echoes and update timestamps
	NowMillis() int64
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the elapsed time since t
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// NowMillis returns the current time in unix milliseconds
func (c *RealClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}
