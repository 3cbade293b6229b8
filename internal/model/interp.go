package model

import "math"

// clampedIndexFraction floors v/step into a grid index clamped to
// [0, n-2] (the last valid "lower corner" index for an n-point axis) and
// returns the fractional offset within that cell. Shared by Topography's
// bilinear lookup and Block's trilinear lookup so both honor the same
// upper-boundary clamping policy.
func clampedIndexFraction(v, step float64, n int) (int, float64) {
	raw := v / step
	i := int(math.Floor(raw))
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	return i, raw - float64(i)
}
