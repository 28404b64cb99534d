package utils

import "time"

// Upper bound on a single websocket or REST frame.
const MaxFrameBytes = 4 << 20

// -----------------------------------------------------------------------------

// NowMillis returns t as unix milliseconds, or the current time when t is zero
func NowMillis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}
