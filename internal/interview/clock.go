package interview

import "fmt"

// Clock counts an interview down one second per tick
type Clock struct {
	Remaining int // seconds
	Elapsed   int // seconds
}

// NewClock starts a clock at limitMinutes, or defaultMinutes when no limit is set
func NewClock(limitMinutes, defaultMinutes int) Clock {
	if limitMinutes <= 0 {
		limitMinutes = defaultMinutes
	}
	return Clock{Remaining: limitMinutes * 60}
}

// Tick advances one second and reports whether time has run out
func (c *Clock) Tick() bool {
	if c.Remaining > 0 {
		c.Remaining--
	}
	c.Elapsed++
	return c.Remaining == 0
}

// FormatClock renders seconds as mm:ss
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
