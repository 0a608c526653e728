package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributesToRemoteLight(t *testing.T) {
	out := AttributesToRemote(DomainLight, map[string]any{
		"brightness":        255,
		"color_temp_kelvin": 2700,
		"friendly_name":     "Kitchen",
	})
	assert.Equal(t, 100, out["brightness"])
	assert.Equal(t, 2700, out["color_temperature"])
	assert.Equal(t, "Kitchen", out["friendly_name"])
}

func TestAttributesToRemoteCover(t *testing.T) {
	out := AttributesToRemote(DomainCover, map[string]any{"current_position": 42})
	assert.Equal(t, 42, out["position"])
}

func TestAttributesToRemoteMediaPlayerVolumeRounds(t *testing.T) {
	out := AttributesToRemote(DomainMediaPlayer, map[string]any{"volume_level": 0.755})
	assert.Equal(t, 76, out["volume"])
}

func TestAttributesToRemoteIgnoresUnknownKeys(t *testing.T) {
	out := AttributesToRemote(DomainSwitch, map[string]any{"brightness": 200})
	_, ok := out["brightness"]
	assert.False(t, ok)
}

func TestAttributesToRemoteMissingKeysOmitted(t *testing.T) {
	out := AttributesToRemote(DomainLight, map[string]any{})
	_, hasBrightness := out["brightness"]
	assert.False(t, hasBrightness)
}
