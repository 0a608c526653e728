package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsFirstThenThrottles(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	key := Key("EntityUnknown", "light.kitchen")

	assert.True(t, l.AllowAt(key, now))
	assert.False(t, l.AllowAt(key, now.Add(1*time.Second)))
	assert.False(t, l.AllowAt(key, now.Add(59*time.Second)))
	assert.True(t, l.AllowAt(key, now.Add(61*time.Second)))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(time.Minute)
	now := time.Now()

	assert.True(t, l.AllowAt(Key("NotSupported", "light.a"), now))
	assert.True(t, l.AllowAt(Key("NotSupported", "light.b"), now))
}
