// Package store implements a byte-keyed associative table with a pluggable
// key comparator and a release hook for stored pairs.
//
// The table uses separate chaining over a power-of-two bucket array hashed
// with xxhash. It is not safe for concurrent use; the bridge engine owns its
// tables from a single goroutine.
package store

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultCapacity = 16
	// Grow when len/buckets exceeds loadNum/loadDen.
	loadNum = 3
	loadDen = 4
)

// CompareFunc orders two keys. Zero means equal.
type CompareFunc func(a, b []byte) int

// HashFunc hashes a key. Keys a CompareFunc reports equal must hash equal,
// so a comparator that looks at part of the key needs a hash over the same
// part.
type HashFunc func(key []byte) uint64

// ReleaseFunc is called exactly once for every pair that leaves the store
// through Remove or Destroy.
type ReleaseFunc[V any] func(key []byte, value V)

// Options configures a Store.
type Options[V any] struct {
	Compare  CompareFunc    // defaults to bytes.Compare
	Hash     HashFunc       // defaults to xxhash of the whole key; must agree with Compare
	Release  ReleaseFunc[V] // defaults to a no-op
	Capacity int            // initial bucket hint
}

type entry[V any] struct {
	key   []byte
	value V
	hash  uint64
	next  *entry[V]
}

// Store maps byte keys to values of type V.
type Store[V any] struct {
	buckets   []*entry[V]
	count     int
	compare   CompareFunc
	hash      HashFunc
	release   ReleaseFunc[V]
	destroyed bool
}

// New creates an empty store.
func New[V any](opts Options[V]) *Store[V] {
	s := &Store[V]{
		compare: opts.Compare,
		hash:    opts.Hash,
		release: opts.Release,
	}
	if s.compare == nil {
		s.compare = bytes.Compare
	}
	if s.hash == nil {
		s.hash = xxhash.Sum64
	}
	s.buckets = make([]*entry[V], bucketCount(opts.Capacity))
	return s
}

func bucketCount(hint int) int {
	n := defaultCapacity
	for n < hint {
		n <<= 1
	}
	return n
}

func (s *Store[V]) index(h uint64) int {
	return int(h & uint64(len(s.buckets)-1))
}

func (s *Store[V]) lookup(key []byte) *entry[V] {
	if s.destroyed {
		return nil
	}
	h := s.hash(key)
	for e := s.buckets[s.index(h)]; e != nil; e = e.next {
		if e.hash == h && s.compare(e.key, key) == 0 {
			return e
		}
	}
	return nil
}

// Insert stores a private copy of key with value. It returns false, leaving
// the store unchanged, when key is already present or the store has been
// destroyed.
func (s *Store[V]) Insert(key []byte, value V) bool {
	if s.destroyed || s.lookup(key) != nil {
		return false
	}
	if (s.count+1)*loadDen > len(s.buckets)*loadNum {
		s.grow()
	}

	h := s.hash(key)
	i := s.index(h)
	s.buckets[i] = &entry[V]{
		key:   bytes.Clone(key),
		value: value,
		hash:  h,
		next:  s.buckets[i],
	}
	s.count++
	return true
}

func (s *Store[V]) grow() {
	old := s.buckets
	s.buckets = make([]*entry[V], len(old)*2)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			i := s.index(e.hash)
			e.next = s.buckets[i]
			s.buckets[i] = e
			e = next
		}
	}
}

// Find returns a pointer to the stored value. Writes through the pointer
// update the entry in place.
func (s *Store[V]) Find(key []byte) (*V, bool) {
	e := s.lookup(key)
	if e == nil {
		return nil, false
	}
	return &e.value, true
}

// Has reports whether key is present.
func (s *Store[V]) Has(key []byte) bool {
	return s.lookup(key) != nil
}

// Remove deletes key and releases the pair. It returns false when key is
// absent.
func (s *Store[V]) Remove(key []byte) bool {
	if s.destroyed {
		return false
	}
	h := s.hash(key)
	i := s.index(h)
	for p := &s.buckets[i]; *p != nil; p = &(*p).next {
		e := *p
		if e.hash != h || s.compare(e.key, key) != 0 {
			continue
		}
		*p = e.next
		s.count--
		s.releaseEntry(e)
		return true
	}
	return false
}

// Len returns the number of stored pairs.
func (s *Store[V]) Len() int { return s.count }

// Range calls fn for each pair in unspecified order until fn returns false.
// fn must not insert into or remove from the store.
func (s *Store[V]) Range(fn func(key []byte, value *V) bool) {
	for _, head := range s.buckets {
		for e := head; e != nil; e = e.next {
			if !fn(e.key, &e.value) {
				return
			}
		}
	}
}

// Destroy releases every remaining pair and leaves the store empty. Later
// inserts fail; calling Destroy again is a no-op.
func (s *Store[V]) Destroy() {
	if s.destroyed {
		return
	}
	for i, head := range s.buckets {
		for e := head; e != nil; {
			next := e.next
			s.releaseEntry(e)
			e = next
		}
		s.buckets[i] = nil
	}
	s.count = 0
	s.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (s *Store[V]) Destroyed() bool { return s.destroyed }

func (s *Store[V]) releaseEntry(e *entry[V]) {
	if s.release != nil {
		s.release(e.key, e.value)
	}
	e.next = nil
}
