package hubclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := nextBackoff(attempt)
		assert.GreaterOrEqual(t, d, backoffBase)
		assert.LessOrEqual(t, d, backoffCap+backoffCap/5)
	}
}

func TestNextBackoffEventuallyHitsCap(t *testing.T) {
	d := nextBackoff(20)
	assert.GreaterOrEqual(t, d, backoffCap)
}

func TestNextBackoffAttemptZeroIsAroundBase(t *testing.T) {
	d := nextBackoff(0)
	assert.GreaterOrEqual(t, d, backoffBase)
	assert.Less(t, d, 2*backoffBase)
}
