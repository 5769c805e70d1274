// Package devseed loads fixture files used to pre-populate the in-memory
// ledger. Files ending in .yaml or .yml are parsed as YAML, anything else as
// JSON.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IdentitySeed registers an identity and its public key.
type IdentitySeed struct {
	Username  string `json:"username" yaml:"username"`
	PublicKey string `json:"public_key,omitempty" yaml:"public_key,omitempty"`
}

// EntrySeed is a fact recorded before the ledger starts serving. An empty
// Timestamp is filled in by the ledger clock.
type EntrySeed struct {
	Verb      string `json:"verb" yaml:"verb"`
	ContextID string `json:"context_id" yaml:"context_id"`
	Key       string `json:"key" yaml:"key"`
	Value     string `json:"value" yaml:"value"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// LedgerSeed is the top-level fixture document.
type LedgerSeed struct {
	Identities []IdentitySeed `json:"identities" yaml:"identities"`
	Entries    []EntrySeed    `json:"entries" yaml:"entries"`
}

// LoadLedgerSeed reads and validates the fixture at path.
func LoadLedgerSeed(path string) (*LedgerSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return ParseLedgerSeed(data, filepath.Ext(path))
}

// ParseLedgerSeed decodes data according to ext (".json", ".yaml", ".yml").
func ParseLedgerSeed(data []byte, ext string) (*LedgerSeed, error) {
	var seed LedgerSeed
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("devseed: decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("devseed: decode json: %w", err)
		}
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *LedgerSeed) validate() error {
	for i, id := range s.Identities {
		if strings.TrimSpace(id.Username) == "" {
			return fmt.Errorf("devseed: identity %d missing username", i)
		}
	}
	for i, e := range s.Entries {
		switch {
		case strings.TrimSpace(e.Verb) == "":
			return fmt.Errorf("devseed: entry %d missing verb", i)
		case strings.TrimSpace(e.ContextID) == "":
			return fmt.Errorf("devseed: entry %d missing context_id", i)
		case strings.TrimSpace(e.Key) == "":
			return fmt.Errorf("devseed: entry %d missing key", i)
		}
	}
	return nil
}
