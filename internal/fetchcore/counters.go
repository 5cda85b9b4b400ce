package fetchcore

import "sync/atomic"

// unparseableDateFallbacks counts how many times ExtractDate fell back to
// now() because no known format matched. The fallback is
// retained but made observable rather than silent.
var unparseableDateFallbacks atomic.Int64

// UnparseableDateFallbacks returns the running total for telemetry.
func UnparseableDateFallbacks() int64 {
	return unparseableDateFallbacks.Load()
}
