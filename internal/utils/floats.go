package utils

import "math"

// floatEpsilon is the tolerance used when deciding whether a reading
// changed enough to be persisted again.
const floatEpsilon = 1e-9

// FloatsEqual reports whether two float64 values are equal within a small
// absolute tolerance.
func FloatsEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatEpsilon
}
