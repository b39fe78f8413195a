package store

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Value is a named, typed cell held in memory and mirrored to a durable
// store entry. Every assignment performs the in-memory write and the durable
// write as one step; there is no separate commit and no watcher keeping the
// two sides in sync.
type Value[T any] struct {
	name  string
	store Store
	attrs Attributes
	mem   *T
}

// NewValue creates a cell backed by the durable entry name. An existing
// durable entry is loaded into memory; a corrupted entry is treated as
// absent rather than failing construction.
func NewValue[T any](s Store, name string, attrs Attributes) (*Value[T], error) {
	if s == nil {
		return nil, errors.New("[NewValue] store is required")
	}
	if name == "" {
		return nil, errors.New("[NewValue] name is required")
	}

	v := &Value[T]{name: name, store: s, attrs: attrs}

	raw, ok, err := s.Get(name)
	if err != nil {
		return nil, errors.Wrap(err, "[NewValue] store.Get")
	}
	if ok {
		var loaded T
		if err := json.Unmarshal([]byte(raw), &loaded); err == nil {
			v.mem = &loaded
		}
	}
	return v, nil
}

func (v *Value[T]) Name() string {
	return v.name
}

// Get returns the in-memory value, or nil when absent.
func (v *Value[T]) Get() *T {
	return v.mem
}

// Set assigns the cell: the in-memory copy and the durable mirror are
// written in the same step. A nil value clears the cell.
func (v *Value[T]) Set(val *T) error {
	if val == nil {
		return v.Clear()
	}

	encoded, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "[Value.Set] json.Marshal")
	}

	v.mem = val
	if err := v.store.Set(v.name, string(encoded), v.attrs); err != nil {
		return errors.Wrap(err, "[Value.Set] store.Set")
	}
	return nil
}

// Clear removes both the in-memory value and the durable entry.
func (v *Value[T]) Clear() error {
	v.mem = nil
	if err := v.store.Delete(v.name); err != nil {
		return errors.Wrap(err, "[Value.Clear] store.Delete")
	}
	return nil
}

// DurablePresent re-reads the backing store and reports whether the entry
// actually persisted. Used to detect silently dropped writes.
func (v *Value[T]) DurablePresent() (bool, error) {
	_, ok, err := v.store.Get(v.name)
	if err != nil {
		return false, errors.Wrap(err, "[Value.DurablePresent] store.Get")
	}
	return ok, nil
}
