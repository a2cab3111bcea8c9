package service

import "time"

// Clock supplies "now" so wall-clock-coupled rules (the attendance window,
// the 19:00 cap) are testable with arbitrary instants. Every operation
// captures now once and reuses that single value for all comparisons.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }
