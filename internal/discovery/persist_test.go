package discovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFileIsNotError(t *testing.T) {
	s := NewStore(t.TempDir())
	cfg, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, cfg)
}

func TestStoreSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	want := &DriverConfig{HubURL: "ws://hub.local:8123/api/websocket", HubToken: "secret", TLSVerify: true}
	require.NoError(t, s.Save(want))

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	entries, err := filepath.Glob(filepath.Join(dir, "driver-*.json.tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should not survive a successful save")
}

func TestStoreSaveOverwritesExisting(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Save(&DriverConfig{HubURL: "ws://a"}))
	require.NoError(t, s.Save(&DriverConfig{HubURL: "ws://b"}))

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ws://b", got.HubURL)
}
