// Package settings holds the guardrail tree that gates feature behaviour.
//
// The tree is addressed by (category, key). Its schema is fixed when the
// Settings value is built; Set only ever replaces existing values.
package settings

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"esuvi/internal/core"
	"esuvi/internal/log"
)

// Tree maps category -> key -> value. Values are bool, int, float64, string,
// []string or map[string]any records built from the same kinds.
type Tree map[string]map[string]any

// Settings is the process-wide guardrail instance. Safe for concurrent use.
type Settings struct {
	mu     sync.RWMutex
	tree   Tree
	logger *log.Logger
}

// New builds Settings from tree. Values are normalized and copied, so the
// caller keeps ownership of tree.
func New(tree Tree, logger *log.Logger) (*Settings, error) {
	s := &Settings{
		tree:   make(Tree, len(tree)),
		logger: log.OrDiscard(logger).WithComponent(log.ComponentSettings),
	}
	for category, keys := range tree {
		s.tree[category] = make(map[string]any, len(keys))
		for key, v := range keys {
			nv, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("setting %s.%s: %w", category, key, err)
			}
			s.tree[category][key] = nv
		}
	}
	return s, nil
}

// NewDefault builds Settings from Default().
func NewDefault(logger *log.Logger) *Settings {
	s, err := New(Default(), logger)
	if err != nil {
		// Default() only holds supported kinds.
		panic(err)
	}
	return s
}

// Get returns the configured value. A missing category or key is logged and
// reported as core.ErrNotFound; callers treat it as nil and apply their own
// default.
func (s *Settings) Get(category, key string) (any, error) {
	s.mu.RLock()
	v, ok := s.lookup(category, key)
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("Setting not found", log.FieldCategory, category, log.FieldKey, key)
		return nil, fmt.Errorf("setting %s.%s: %w", category, key, core.ErrNotFound)
	}
	return cloneValue(v), nil
}

// Set replaces an existing value in place. It never adds keys.
func (s *Settings) Set(category, key string, value any) error {
	nv, err := normalize(value)
	if err != nil {
		return fmt.Errorf("setting %s.%s: %w", category, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.lookup(category, key)
	if !ok {
		s.logger.Warn("Setting not found", log.FieldCategory, category, log.FieldKey, key)
		return fmt.Errorf("setting %s.%s: %w", category, key, core.ErrNotFound)
	}
	coerced, err := coerce(current, nv)
	if err != nil {
		return fmt.Errorf("setting %s.%s: %w", category, key, err)
	}
	s.tree[category][key] = coerced
	s.logger.Debug("Setting updated", log.FieldCategory, category, log.FieldKey, key)
	return nil
}

// Has reports whether the pair exists, without logging.
func (s *Settings) Has(category, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookup(category, key)
	return ok
}

// Snapshot returns a deep copy of the whole tree.
func (s *Settings) Snapshot() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Tree, len(s.tree))
	for category, keys := range s.tree {
		out[category] = make(map[string]any, len(keys))
		for key, v := range keys {
			out[category][key] = cloneValue(v)
		}
	}
	return out
}

func (s *Settings) lookup(category, key string) (any, bool) {
	keys, ok := s.tree[category]
	if !ok {
		return nil, false
	}
	v, ok := keys[key]
	return v, ok
}

// Bool returns a bool setting.
func (s *Settings) Bool(category, key string) (bool, error) {
	v, err := s.Get(category, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, mismatch(category, key, "bool", v)
	}
	return b, nil
}

// Int returns an int setting.
func (s *Settings) Int(category, key string) (int, error) {
	v, err := s.Get(category, key)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int)
	if !ok {
		return 0, mismatch(category, key, "int", v)
	}
	return i, nil
}

// Float returns a numeric setting as float64. Int values are widened.
func (s *Settings) Float(category, key string) (float64, error) {
	v, err := s.Get(category, key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, mismatch(category, key, "float", v)
}

// String returns a string setting.
func (s *Settings) String(category, key string) (string, error) {
	v, err := s.Get(category, key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", mismatch(category, key, "string", v)
	}
	return str, nil
}

// Strings returns a list setting.
func (s *Settings) Strings(category, key string) ([]string, error) {
	v, err := s.Get(category, key)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]string)
	if !ok {
		return nil, mismatch(category, key, "list", v)
	}
	return list, nil
}

// Record returns a nested record setting.
func (s *Settings) Record(category, key string) (map[string]any, error) {
	v, err := s.Get(category, key)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, mismatch(category, key, "record", v)
	}
	return rec, nil
}

// BoolOr returns the setting or def on any error.
func (s *Settings) BoolOr(category, key string, def bool) bool {
	if b, err := s.Bool(category, key); err == nil {
		return b
	}
	return def
}

// IntOr returns the setting or def on any error.
func (s *Settings) IntOr(category, key string, def int) int {
	if i, err := s.Int(category, key); err == nil {
		return i
	}
	return def
}

// FloatOr returns the setting or def on any error.
func (s *Settings) FloatOr(category, key string, def float64) float64 {
	if f, err := s.Float(category, key); err == nil {
		return f
	}
	return def
}

// StringOr returns the setting or def on any error.
func (s *Settings) StringOr(category, key, def string) string {
	if str, err := s.String(category, key); err == nil {
		return str
	}
	return def
}

// Categories returns the allowed categories for a transaction type.
func (s *Settings) Categories(t core.TransactionType) []string {
	rec, err := s.Record(CategoryFinance, KeyCategories)
	if err != nil {
		return nil
	}
	list, _ := rec[string(t)].([]string)
	return list
}

// AllowsCategory reports whether category is configured for t.
func (s *Settings) AllowsCategory(t core.TransactionType, category string) bool {
	return slices.Contains(s.Categories(t), category)
}

// RequiresIdentity reports whether feature needs a signed-in user: auth is
// required and the feature is not listed as public.
func (s *Settings) RequiresIdentity(feature string) bool {
	if !s.BoolOr(CategoryAuth, KeyRequireAuth, false) {
		return false
	}
	public, err := s.Strings(CategoryAuth, KeyPublicFeatures)
	if err != nil {
		return true
	}
	return !slices.Contains(public, feature)
}

func mismatch(category, key, want string, got any) error {
	return fmt.Errorf("setting %s.%s: %w: want %s, have %s", category, key, core.ErrTypeMismatch, want, kindOf(got))
}

// normalize maps decoded values (JSON, YAML, literals) onto the supported kinds.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case bool, string, []string:
		if list, ok := x.([]string); ok {
			return slices.Clone(list), nil
		}
		return x, nil
	case int:
		return x, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return int(x), nil
	case uint8:
		return int(x), nil
	case uint16:
		return int(x), nil
	case uint32:
		return int(x), nil
	case uint64:
		if x > math.MaxInt {
			return nil, fmt.Errorf("%w: integer %d overflows", core.ErrTypeMismatch, x)
		}
		return int(x), nil
	case float32:
		return float64(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: non-finite number", core.ErrTypeMismatch)
		}
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: lists hold strings only, have %s", core.ErrTypeMismatch, kindOf(item))
			}
			out = append(out, str)
		}
		return out, nil
	case map[string][]string:
		out := make(map[string]any, len(x))
		for k, list := range x {
			out[k] = slices.Clone(list)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			nv, err := normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: null value", core.ErrTypeMismatch)
	}
	return nil, fmt.Errorf("%w: unsupported value of type %T", core.ErrTypeMismatch, v)
}

// coerce checks that next has the kind of current. Numbers convert between
// int and float when no precision is lost.
func coerce(current, next any) (any, error) {
	switch current.(type) {
	case int:
		switch n := next.(type) {
		case int:
			return n, nil
		case float64:
			if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
				return int(n), nil
			}
		}
	case float64:
		switch n := next.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
	default:
		if kindOf(current) == kindOf(next) {
			return next, nil
		}
	}
	return nil, fmt.Errorf("%w: want %s, have %s", core.ErrTypeMismatch, kindOf(current), kindOf(next))
}

func kindOf(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case int:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []string:
		return "list"
	case map[string]any:
		return "record"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = cloneValue(item)
		}
		return out
	}
	return v
}
