package settings

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// LoadFile applies a YAML override file shaped as category -> key -> value.
// A missing file is not an error.
func (s *Settings) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	return s.Apply(data)
}

// Apply sets every value found in the YAML document. Known keys are applied
// even when others fail; all failures are returned together. Record values
// are merged key by key, so an override naming finance.categories.income
// keeps the expense list.
func (s *Settings) Apply(data []byte) error {
	var overrides map[string]map[string]any
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}

	var errs []error
	for _, category := range sortedKeys(overrides) {
		keys := overrides[category]
		for _, key := range sortedKeys(keys) {
			if err := s.Set(category, key, s.merged(category, key, keys[key])); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// merged overlays a record override on the current record. Other values are
// returned as given.
func (s *Settings) merged(category, key string, override any) any {
	patch, ok := override.(map[string]any)
	if !ok {
		return override
	}
	current, err := s.Record(category, key)
	if err != nil {
		return override
	}
	out := maps.Clone(current)
	maps.Copy(out, patch)
	return out
}

// WriteFile saves the whole tree as YAML in the format LoadFile reads. The
// file is replaced atomically.
func (s *Settings) WriteFile(path string) error {
	data, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
