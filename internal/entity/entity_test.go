package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDomainSplitsOnFirstDot(t *testing.T) {
	assert.Equal(t, DomainLight, ID("light.kitchen").Domain())
	assert.Equal(t, DomainMediaPlayer, ID("media_player.living_room").Domain())
}

func TestCatalogPutGetRemove(t *testing.T) {
	c := NewCatalog()
	e := &Entity{ID: "light.kitchen", Domain: DomainLight, State: "on"}
	c.Put(e)

	got, ok := c.Get("light.kitchen")
	require.True(t, ok)
	assert.Equal(t, e, got)
	assert.Equal(t, 1, c.Len())

	c.Remove("light.kitchen")
	_, ok = c.Get("light.kitchen")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCatalogResetClearsAllEntities(t *testing.T) {
	c := NewCatalog()
	c.Put(&Entity{ID: "light.a", Domain: DomainLight})
	c.Put(&Entity{ID: "light.b", Domain: DomainLight})
	require.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.All())
}

func TestEntityHasFeature(t *testing.T) {
	e := &Entity{Features: map[string]struct{}{"brightness": {}}}
	assert.True(t, e.HasFeature("brightness"))
	assert.False(t, e.HasFeature("color"))
}

func TestErrStateInvariant(t *testing.T) {
	e := &Entity{ID: "light.kitchen", State: LightStateOn}
	assert.NoError(t, ErrState(e, []string{LightStateOn, LightStateOff, RemoteStateUnavailable}))

	e.State = "some_made_up_state"
	assert.Error(t, ErrState(e, []string{LightStateOn, LightStateOff, RemoteStateUnavailable}))
}
