package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DriverConfig is the setup flow's final persisted choice: the hub
// endpoint and credentials the session probed and accepted, written to
// disk so subsequent connections skip SetupRequired (spec.md §4.4/§6).
type DriverConfig struct {
	HubURL     string   `json:"hub_url"`
	HubToken   string   `json:"hub_token"`
	TLSVerify  bool     `json:"tls_verify"`
	TLSCACerts []string `json:"tls_ca_certs,omitempty"`
}

// Store owns the on-disk driver.json file under a data-home directory.
type Store struct {
	path string
}

func NewStore(dataHome string) *Store {
	return &Store{path: filepath.Join(dataHome, "driver.json")}
}

// Load reads the persisted driver config. A missing file is not an
// error: it reports ok=false so the caller starts in SetupRequired.
func (s *Store) Load() (*DriverConfig, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read driver config: %w", err)
	}
	var cfg DriverConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("decode driver config: %w", err)
	}
	return &cfg, true, nil
}

// Save writes cfg via temp-file + rename so a crash mid-write never
// leaves a partially-written driver.json behind.
func (s *Store) Save(cfg *DriverConfig) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data home: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode driver config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "driver-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp driver config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp driver config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp driver config: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename driver config into place: %w", err)
	}
	return nil
}
