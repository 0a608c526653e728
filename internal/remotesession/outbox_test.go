package remotesession

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEvictsOldestSameEntityAtCapacity(t *testing.T) {
	o := newOutbox()

	for i := 0; i < outboxCapacity; i++ {
		o.push([]byte(fmt.Sprintf("change-%d", i)), "light.kitchen")
	}
	require.Equal(t, outboxCapacity, o.len())
	assert.Equal(t, int64(0), o.droppedCount())

	// The 257th change for the same entity must evict the oldest
	// queued change rather than growing the queue, and must count the
	// eviction as a drop (spec.md §8 boundary behavior / E2E scenario
	// #6).
	o.push([]byte("change-257"), "light.kitchen")

	assert.Equal(t, outboxCapacity, o.len())
	assert.Equal(t, int64(1), o.droppedCount())

	first, ok := o.pop()
	require.True(t, ok)
	assert.Equal(t, []byte("change-1"), first, "oldest queued change for the entity should have been evicted")
}

func TestOutboxEvictionPrefersSameEntityOverOthers(t *testing.T) {
	o := newOutbox()

	o.push([]byte("other-entity-0"), "switch.fan")
	for i := 0; i < outboxCapacity-1; i++ {
		o.push([]byte(fmt.Sprintf("kitchen-%d", i)), "light.kitchen")
	}
	require.Equal(t, outboxCapacity, o.len())

	// At capacity, a new change for light.kitchen should evict the
	// oldest light.kitchen item, leaving switch.fan's queued change
	// untouched.
	o.push([]byte("kitchen-last"), "light.kitchen")

	assert.Equal(t, outboxCapacity, o.len())
	assert.Equal(t, int64(1), o.droppedCount())

	first, ok := o.pop()
	require.True(t, ok)
	assert.Equal(t, []byte("other-entity-0"), first)

	second, ok := o.pop()
	require.True(t, ok)
	assert.Equal(t, []byte("kitchen-1"), second, "kitchen-0 should have been evicted in favor of kitchen-1")
}

func TestOutboxResponsesAreNeverEvictedOrEvicting(t *testing.T) {
	o := newOutbox()

	for i := 0; i < outboxCapacity; i++ {
		o.push([]byte(fmt.Sprintf("resp-%d", i)), "")
	}
	require.Equal(t, outboxCapacity, o.len())

	// Past capacity with no change items, a response frame is still
	// enqueued rather than dropped: only change frames are subject to
	// eviction.
	o.push([]byte("resp-extra"), "")

	assert.Equal(t, outboxCapacity+1, o.len())
	assert.Equal(t, int64(0), o.droppedCount())
}
