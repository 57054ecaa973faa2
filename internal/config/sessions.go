package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SessionRecord is the persisted state for one target.
type SessionRecord struct {
	// ProtocolVersion is 1 or 2 once observed; 0 means never resolved.
	ProtocolVersion int    `yaml:"version,omitempty" json:"version,omitempty"`
	Token           string `yaml:"token,omitempty" json:"token,omitempty"`
	OrganizationID  string `yaml:"organization,omitempty" json:"organization,omitempty"`
	SpaceID         string `yaml:"space,omitempty" json:"space,omitempty"`
}

// UnmarshalYAML accepts both plain keys and the ":key" symbol form written by
// older releases. A bare string is a token, as in the legacy file.
func (r *SessionRecord) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.Token)
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: session record must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		v := value.Content[i+1]
		var err error
		switch strings.TrimPrefix(value.Content[i].Value, ":") {
		case "version":
			err = v.Decode(&r.ProtocolVersion)
		case "token":
			err = v.Decode(&r.Token)
		case "organization":
			err = v.Decode(&r.OrganizationID)
		case "space":
			err = v.Decode(&r.SpaceID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SessionStore maps a target URL to its session record.
type SessionStore map[string]SessionRecord

// Targets returns the known target URLs sorted.
func (s SessionStore) Targets() []string {
	targets := make([]string, 0, len(s))
	for t := range s {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// decodeSessions parses the current tokens.yml format.
func decodeSessions(data []byte) (SessionStore, error) {
	store := SessionStore{}
	if err := yaml.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("invalid tokens file: %w", err)
	}
	return store, nil
}

// decodeLegacySessions parses the JSON map written by the old ~/.vmc_token file.
// A bare string value is a token with no version, organization or space.
func decodeLegacySessions(data []byte) (SessionStore, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid legacy tokens file: %w", err)
	}

	store := make(SessionStore, len(raw))
	for target, value := range raw {
		var token string
		if err := json.Unmarshal(value, &token); err == nil {
			store[target] = SessionRecord{Token: token}
			continue
		}

		var rec SessionRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil, fmt.Errorf("invalid legacy entry for %s: %w", target, err)
		}
		store[target] = rec
	}
	return store, nil
}

func encodeSessions(store SessionStore) ([]byte, error) {
	if store == nil {
		store = SessionStore{}
	}
	return yaml.Marshal(store)
}

// ReadSessionStore loads the session store. The legacy file is consulted only
// when tokens.yml is absent; if neither exists the store is empty.
func (s *Store) ReadSessionStore() (SessionStore, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, tokensFileName))
	if err == nil {
		return decodeSessions(data)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	data, err = os.ReadFile(filepath.Join(s.Home, oldTokensFileName))
	if os.IsNotExist(err) {
		return SessionStore{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeLegacySessions(data)
}

// WriteSessionStore replaces tokens.yml with the full store.
func (s *Store) WriteSessionStore(store SessionStore) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}
	data, err := encodeSessions(store)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.Dir, tokensFileName), data)
}

// Record returns the session record for target, or an empty record.
func (s *Store) Record(target string) (SessionRecord, error) {
	store, err := s.ReadSessionStore()
	if err != nil {
		return SessionRecord{}, err
	}
	return store[target], nil
}

// SaveRecord stores rec under target, rewriting the whole store.
func (s *Store) SaveRecord(target string, rec SessionRecord) error {
	store, err := s.ReadSessionStore()
	if err != nil {
		return err
	}
	store[target] = rec
	return s.WriteSessionStore(store)
}

// RemoveRecord deletes the record for target, rewriting the whole store.
func (s *Store) RemoveRecord(target string) error {
	store, err := s.ReadSessionStore()
	if err != nil {
		return err
	}
	delete(store, target)
	return s.WriteSessionStore(store)
}
