// Package safeconv provides integer conversions that saturate instead of
// wrapping.
package safeconv

import "math"

// ClampIntToUint32 converts v to uint32, mapping negatives to zero and
// values above math.MaxUint32 to math.MaxUint32.
func ClampIntToUint32(v int) uint32 {
	switch {
	case v < 0:
		return 0
	case uint64(v) > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}
