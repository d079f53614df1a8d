package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTrackerFile overlays the YAML file at path onto base.
// Fields absent from the file keep their base value.
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func LoadTrackerFile(path string, base TrackerConfig) (TrackerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	return DecodeTracker(data, base)
}

// DecodeTracker is LoadTrackerFile over raw YAML bytes
func DecodeTracker(data []byte, base TrackerConfig) (TrackerConfig, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("decode tracker config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Hash returns the SHA256 of the canonical JSON encoding.
// The same settings always give the same hash, so a report can be traced
// back to the configuration that produced it.
func (t TrackerConfig) Hash() string {
	data, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
