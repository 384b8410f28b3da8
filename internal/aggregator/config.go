package aggregator

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/claimhub/ClaimHub/internal/source"
)

// SourceState is the persisted per-source slice of the configuration
// document. Early documents stored a bare boolean per source; that legacy
// form is upgraded to the structured one on load and written back structured
// on the next save.
type SourceState struct {
	Enabled   bool            `json:"enabled"`
	Languages []string        `json:"languages,omitempty"`
	Stats     source.RunStats `json:"stats"`
	Type      string          `json:"type,omitempty"`
}

func (s *SourceState) UnmarshalJSON(data []byte) error {
	var legacy bool
	if err := json.Unmarshal(data, &legacy); err == nil {
		*s = SourceState{Enabled: legacy}
		return nil
	}

	type plain SourceState
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SourceState(p)
	return nil
}

// ConfigStore persists source state as a JSON document keyed by source id.
type ConfigStore struct {
	path string
}

func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Load reads the persisted document. A missing or unreadable file yields an
// empty map: configuration corruption must never block a run.
func (c *ConfigStore) Load() map[string]SourceState {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config: read %s: %v", c.path, err)
		}
		return map[string]SourceState{}
	}

	states := map[string]SourceState{}
	if err := json.Unmarshal(data, &states); err != nil {
		log.Printf("config: parse %s: %v, falling back to defaults", c.path, err)
		return map[string]SourceState{}
	}
	return states
}

// Save replaces the document via temp-file-and-rename so a crash mid-write
// cannot corrupt previously-good state.
func (c *ConfigStore) Save(states map[string]SourceState) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".sources_config-*.json")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("config: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("config: replace %s: %w", c.path, err)
	}
	return nil
}
