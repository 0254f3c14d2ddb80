package forecast

import (
	"math"
	"time"
)

// SafeDivide returns a/b, or def when b is zero or the result is not finite.
func SafeDivide(a, b, def float64) float64 {
	if b == 0 {
		return def
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return def
	}
	return q
}

// Clamp bounds v to [lo, hi]. NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// DaysBetween counts calendar days from one date to another, comparing the
// midnights of both dates in from's location. A lot born yesterday at 23:00
// is one day old at 01:00 today.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
