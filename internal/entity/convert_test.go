package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrightnessRoundTripWithinOneUnit(t *testing.T) {
	for _, pct := range []int{0, 25, 50, 75, 100} {
		raw := Brightness100To255(pct)
		back := Brightness255To100(raw)
		diff := back - pct
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqualf(t, diff, 1, "pct=%d raw=%d back=%d", pct, raw, back)
	}
}

func TestBrightnessRoundHalfUp(t *testing.T) {
	// 128 * 100 / 255 = 50.196... -> 50
	assert.Equal(t, 50, Brightness255To100(128))
	// 1 * 100 / 255 = 0.392 -> 0
	assert.Equal(t, 0, Brightness255To100(1))
	// 255 -> 100
	assert.Equal(t, 100, Brightness255To100(255))
	// 50% -> 127.5 -> half-up -> 128
	assert.Equal(t, 128, Brightness100To255(50))
}

func TestColorTempAndCoverPositionPassThrough(t *testing.T) {
	assert.Equal(t, 2700, ColorTempKelvin(2700))
	assert.Equal(t, 42, CoverPosition(42))
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-5))
	assert.Equal(t, 100, ClampPercent(150))
	assert.Equal(t, 50, ClampPercent(50))
}
