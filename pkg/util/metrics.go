package util

import "time"

// TimeOperationMicroseconds runs op and returns its wall duration in
// microseconds, for feeding stage timings into telemetry points.
func TimeOperationMicroseconds(op func()) int64 {
	start := time.Now()
	op()
	return time.Since(start).Microseconds()
}
