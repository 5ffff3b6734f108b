// Package checkpoint keeps named snapshots of simulation state and writes
// them to, or reads them from, a stream.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"
)

// ErrUnknownKey is returned when a key has not been registered.
var ErrUnknownKey = errors.New("checkpoint: key is not registered")

// Store owns named state values. Every value that goes in or comes out is a
// deep copy, so callers may keep mutating their own values.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	typ    reflect.Type
	active any
}

// record is the stream form of one entry.
type record struct {
	Key   string
	Value any
}

// NewStore constructs a Store with no registered states.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Register installs a new state value under the provided key. The type of
// the value is fixed for the key from then on.
func (s *Store) Register(key string, value any) error {
	if key == "" {
		return fmt.Errorf("checkpoint: key must be non-empty")
	}
	if value == nil {
		return fmt.Errorf("checkpoint: value for %q must be non-nil", key)
	}

	copyVal, err := deepCopy(value)
	if err != nil {
		return fmt.Errorf("checkpoint: unable to copy value for %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return fmt.Errorf("checkpoint: key %q already registered", key)
	}

	s.entries[key] = &entry{
		typ:    reflect.TypeOf(value),
		active: copyVal,
	}

	return nil
}

// Update replaces the value stored under key.
func (s *Store) Update(key string, value any) error {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	if reflect.TypeOf(value) != e.typ {
		return fmt.Errorf("checkpoint: key %q holds %s, got %T", key, e.typ, value)
	}

	copyVal, err := deepCopy(value)
	if err != nil {
		return fmt.Errorf("checkpoint: unable to copy value for %q: %w", key, err)
	}

	s.mu.Lock()
	e.active = copyVal
	s.mu.Unlock()

	return nil
}

// Load returns a deep copy of the value stored under key.
func (s *Store) Load(key string) (any, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	return deepCopy(e.active)
}

// Keys returns the registered keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Save writes every registered value to w.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]record, 0, len(s.entries))
	for _, key := range s.sortedKeys() {
		records = append(records, record{Key: key, Value: s.entries[key].active})
	}

	return gob.NewEncoder(w).Encode(records)
}

func (s *Store) sortedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Restore reads values written by Save. Every key in the stream must be
// registered with the same type; on error the store is left unchanged.
func (s *Store) Restore(r io.Reader) error {
	var records []record
	if err := gob.NewDecoder(r).Decode(&records); err != nil {
		return fmt.Errorf("checkpoint: unable to decode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		e, ok := s.entries[rec.Key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, rec.Key)
		}

		if reflect.TypeOf(rec.Value) != e.typ {
			return fmt.Errorf("checkpoint: key %q holds %s, stream has %T",
				rec.Key, e.typ, rec.Value)
		}
	}

	for _, rec := range records {
		s.entries[rec.Key].active = rec.Value
	}

	return nil
}

func deepCopy(value any) (any, error) {
	registerGobType(value)

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	typ := reflect.TypeOf(value)
	var target reflect.Value
	if typ.Kind() == reflect.Ptr {
		target = reflect.New(typ.Elem())
	} else {
		target = reflect.New(typ)
	}

	dec := gob.NewDecoder(&buf)
	if err := dec.Decode(target.Interface()); err != nil {
		return nil, err
	}

	if typ.Kind() == reflect.Ptr {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

func registerGobType(value any) {
	typ := reflect.TypeOf(value)
	gob.Register(value)
	if typ.Kind() != reflect.Ptr {
		gob.Register(reflect.New(typ).Interface())
	}
}
