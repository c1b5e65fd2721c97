package storage

import (
	"sort"
	"sync"
)

// Config holds the construction arguments of a storage. Derived storages (copies,
// filtered and sorted results) are built with the same config, so a storage of a
// given kind stays that kind of storage.
type Config struct {
	// Kind names what is stored, such as "guilds" or "members".
	Kind string `cbor:"kind"`

	// Capacity is a size hint for new storages.
	Capacity int `cbor:"capacity"`

	// Args are kind specific arguments, e.g. the guild a member storage belongs to.
	Args map[string]string `cbor:"args"`
}

func (c Config) clone() Config {
	cpy := c
	if c.Args != nil {
		cpy.Args = make(map[string]string, len(c.Args))
		for k, v := range c.Args {
			cpy.Args[k] = v
		}
	}
	return cpy
}

type Entry[V any] struct {
	Key   string `cbor:"k"`
	Value V      `cbor:"v"`
}

// Storage is an insertion ordered, string keyed collection of entities. It is safe for
// concurrent use.
type Storage[V any] struct {
	mu   sync.RWMutex
	keys []string
	data map[string]V

	config   Config
	registry *Registry
	owner    Handle
}

// New creates a storage that belongs to the owner registered under handle.
func New[V any](registry *Registry, owner Handle, config Config, entries ...Entry[V]) *Storage[V] {
	capacity := config.Capacity
	if len(entries) > capacity {
		capacity = len(entries)
	}

	s := &Storage[V]{
		keys:     make([]string, 0, capacity),
		data:     make(map[string]V, capacity),
		config:   config.clone(),
		registry: registry,
		owner:    owner,
	}
	for _, entry := range entries {
		s.set(entry.Key, entry.Value)
	}
	return s
}

// derive builds a storage of the same kind and owner holding the given entries.
func (s *Storage[V]) derive(entries []Entry[V]) *Storage[V] {
	return New[V](s.registry, s.owner, s.config, entries...)
}

func (s *Storage[V]) Config() Config {
	return s.config.clone()
}

// OwnerHandle returns the identity of the owner without resolving it.
func (s *Storage[V]) OwnerHandle() Handle {
	return s.owner
}

// Owner resolves the owner through the registry. It fails once the owner has been
// unregistered.
func (s *Storage[V]) Owner() (Owner, error) {
	if s.registry == nil {
		return nil, ErrOwnerNotFound
	}
	return s.registry.Resolve(s.owner)
}

func (s *Storage[V]) Has(key interface{}) (bool, error) {
	k, err := Key(key)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[k]
	return ok, nil
}

func (s *Storage[V]) Get(key interface{}) (value V, ok bool, err error) {
	k, err := Key(key)
	if err != nil {
		return value, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok = s.data[k]
	return value, ok, nil
}

func (s *Storage[V]) Set(key interface{}, value V) error {
	k, err := Key(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(k, value)
	return nil
}

func (s *Storage[V]) set(key string, value V) {
	if _, exists := s.data[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.data[key] = value
}

// Delete removes the key. Deleting a missing key is not an error.
func (s *Storage[V]) Delete(key interface{}) error {
	k, err := Key(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[k]; !exists {
		return nil
	}

	delete(s.data, k)
	for i := range s.keys {
		if s.keys[i] == k {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Update applies fn to the current value of key under the write lock and stores the
// result. exists tells fn whether current holds a stored value.
func (s *Storage[V]) Update(key interface{}, fn func(current V, exists bool) V) error {
	k, err := Key(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.data[k]
	s.set(k, fn(current, exists))
	return nil
}

func (s *Storage[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = s.keys[:0]
	s.data = make(map[string]V, s.config.Capacity)
}

func (s *Storage[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *Storage[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

func (s *Storage[V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]V, 0, len(s.keys))
	for _, key := range s.keys {
		values = append(values, s.data[key])
	}
	return values
}

// Entries returns the key value pairs in storage order.
func (s *Storage[V]) Entries() []Entry[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries()
}

func (s *Storage[V]) entries() []Entry[V] {
	entries := make([]Entry[V], 0, len(s.keys))
	for _, key := range s.keys {
		entries = append(entries, Entry[V]{Key: key, Value: s.data[key]})
	}
	return entries
}

// Range calls fn for each entry in storage order until fn returns false. fn must not
// modify the storage.
func (s *Storage[V]) Range(fn func(key string, value V) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.keys {
		if !fn(key, s.data[key]) {
			return
		}
	}
}

// Copy returns a storage of the same kind and owner with the same entries.
func (s *Storage[V]) Copy() *Storage[V] {
	return s.derive(s.Entries())
}

// Filter returns a storage of the same kind holding the entries fn accepts.
func (s *Storage[V]) Filter(fn func(key string, value V) bool) *Storage[V] {
	entries := s.Entries()
	kept := entries[:0]
	for _, entry := range entries {
		if fn(entry.Key, entry.Value) {
			kept = append(kept, entry)
		}
	}
	return s.derive(kept)
}

// Sort returns a storage of the same kind with entries ordered by value.
func (s *Storage[V]) Sort(less func(a, b V) bool) *Storage[V] {
	entries := s.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i].Value, entries[j].Value)
	})
	return s.derive(entries)
}

// SortKeys returns a storage of the same kind with entries ordered by key.
func (s *Storage[V]) SortKeys(descending bool) *Storage[V] {
	return s.SortCustomKeys(func(a, b string) bool {
		if descending {
			return a > b
		}
		return a < b
	})
}

func (s *Storage[V]) SortCustomKeys(less func(a, b string) bool) *Storage[V] {
	entries := s.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i].Key, entries[j].Key)
	})
	return s.derive(entries)
}
