package entity

import "math"

// roundHalfUp rounds to the nearest integer, ties rounding away from
// zero towards the larger magnitude (half-up), per spec.md §4.2.
func roundHalfUp(x float64) int {
	if x >= 0 {
		return int(math.Floor(x + 0.5))
	}
	return -int(math.Floor(-x + 0.5))
}

// Brightness255To100 converts a hub 0-255 brightness value to the
// remote protocol's 0-100 percentage scale.
func Brightness255To100(v int) int {
	return roundHalfUp(float64(v) * 100 / 255)
}

// Brightness100To255 converts a remote 0-100 brightness percentage back
// to the hub's 0-255 scale.
func Brightness100To255(pct int) int {
	return roundHalfUp(float64(pct) * 255 / 100)
}

// ColorTempKelvin passes a color temperature straight through: both
// protocols use Kelvin.
func ColorTempKelvin(k int) int {
	return k
}

// CoverPosition passes a cover position straight through: both
// protocols use a 0-100 scale directly.
func CoverPosition(p int) int {
	return p
}

// ClampPercent clamps a percentage value into [0, 100].
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
