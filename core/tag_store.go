package core

import "sync"

// TagStore maps tag names to sets of keys (branch heads). Tag updates and
// removals are atomic from the perspective of concurrent readers (P5).
type TagStore interface {
	// Update atomically rebinds t to keys. Every key in keys must be
	// present in the companion KeyStore, or the call fails with
	// ErrDanglingReference and leaves t unchanged.
	Update(t Tag, keys []Key) error
	// Remove deletes t. It is not an error if t is absent.
	Remove(t Tag)
	// Read returns the keys bound to t, or an empty slice if t is absent.
	Read(t Tag) []Key
	// List returns every defined tag.
	List() []Tag
}

// MemTagStore is an in-memory TagStore. It validates new bindings against a
// KeyStore supplied at construction time, as required by invariant I4.
type MemTagStore struct {
	keys KeyStore

	mu   sync.RWMutex
	tags map[Tag][]Key
}

// NewMemTagStore returns an in-memory tag store that validates bindings
// against keys.
func NewMemTagStore(keys KeyStore) *MemTagStore {
	return &MemTagStore{keys: keys, tags: make(map[Tag][]Key)}
}

// Update implements TagStore.
func (s *MemTagStore) Update(t Tag, keySet []Key) error {
	for _, k := range keySet {
		if !s.keys.Has(k) {
			return ErrDanglingReference
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Key, len(keySet))
	copy(cp, keySet)
	s.tags[t] = cp
	return nil
}

// Remove implements TagStore.
func (s *MemTagStore) Remove(t Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, t)
}

// Read implements TagStore.
func (s *MemTagStore) Read(t Tag) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks, ok := s.tags[t]
	if !ok {
		return nil
	}
	out := make([]Key, len(ks))
	copy(out, ks)
	return out
}

// List implements TagStore.
func (s *MemTagStore) List() []Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tag, 0, len(s.tags))
	for t := range s.tags {
		out = append(out, t)
	}
	return SortTags(out)
}
