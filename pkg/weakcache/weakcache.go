// Package weakcache maps weakly held keys to strongly held values. The cache never keeps a
// key alive, and entries whose key has been collected are dropped by an amortized sweep.
//
// Values are held strongly, so a value that references its own key keeps that key alive.
//
// A Cache is not safe for concurrent use.
package weakcache

import (
	"log/slog"

	"github.com/diwise/odata-values/pkg/odata/errors"
)

const DefaultRefreshInterval int = 1000

type entry[K, V any] struct {
	ref   Reference[K]
	value V
}

type Cache[K, V any] struct {
	buckets map[uint64][]*entry[K, V]
	count   int

	refreshInterval int
	threshold       int

	comparer Comparer[K]
	handles  HandleFunc[K]
	logger   *slog.Logger
}

type Option[K any] func(*settings[K])

type settings[K any] struct {
	refreshInterval int
	comparer        Comparer[K]
	handles         HandleFunc[K]
	logger          *slog.Logger
}

// RefreshInterval sets how many entries may be added between two sweeps
func RefreshInterval[K any](n int) Option[K] {
	return func(s *settings[K]) {
		if n > 0 {
			s.refreshInterval = n
		}
	}
}

func WithComparer[K any](c Comparer[K]) Option[K] {
	return func(s *settings[K]) {
		s.comparer = c
	}
}

// WithHandles replaces weak.Make as the source of key handles, letting the caller decide
// when a key counts as collected
func WithHandles[K any](f HandleFunc[K]) Option[K] {
	return func(s *settings[K]) {
		s.handles = f
	}
}

func WithLogger[K any](logger *slog.Logger) Option[K] {
	return func(s *settings[K]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New[K, V any](options ...Option[K]) *Cache[K, V] {
	s := &settings[K]{
		refreshInterval: DefaultRefreshInterval,
		comparer:        IdentityComparer[K](),
		handles:         weakHandle[K],
		logger:          slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(s)
	}

	return &Cache[K, V]{
		buckets:         map[uint64][]*entry[K, V]{},
		refreshInterval: s.refreshInterval,
		threshold:       s.refreshInterval,
		comparer:        s.comparer,
		handles:         s.handles,
		logger:          s.logger,
	}
}

// Add inserts value for key. It fails if key is nil or if an equal live key is already
// present, and leaves the cache untouched in both cases.
func (c *Cache[K, V]) Add(key *K, value V) error {
	if key == nil {
		return errors.NewArgumentError("cache key must not be nil")
	}

	if c.find(key) != nil {
		return errors.NewDuplicateKeyError("an equal key is already present in the cache")
	}

	c.insert(key, value)
	return nil
}

// Set replaces the value of an equal live key, or inserts key when there is none
func (c *Cache[K, V]) Set(key *K, value V) error {
	if key == nil {
		return errors.NewArgumentError("cache key must not be nil")
	}

	if e := c.find(key); e != nil {
		e.value = value
		return nil
	}

	c.insert(key, value)
	return nil
}

func (c *Cache[K, V]) Get(key *K) (V, bool) {
	if key != nil {
		if e := c.find(key); e != nil {
			return e.value, true
		}
	}

	var zero V
	return zero, false
}

func (c *Cache[K, V]) ContainsKey(key *K) bool {
	return key != nil && c.find(key) != nil
}

// Remove drops the entry of an equal live key and reports whether there was one
func (c *Cache[K, V]) Remove(key *K) bool {
	if key == nil {
		return false
	}

	hash := c.comparer.Hash(key)
	bucket := c.buckets[hash]

	for i, e := range bucket {
		if c.matches(e, key) {
			c.setBucket(hash, append(bucket[:i:i], bucket[i+1:]...))
			c.count--
			return true
		}
	}

	return false
}

// Count returns the number of tracked entries, including entries whose key has been
// collected but not yet swept
func (c *Cache[K, V]) Count() int {
	return c.count
}

// RemoveCollectedEntries sweeps entries with collected keys right away and returns how
// many were removed
func (c *Cache[K, V]) RemoveCollectedEntries() int {
	removed := 0

	for hash, bucket := range c.buckets {
		live := bucket[:0]
		for _, e := range bucket {
			if e.ref.Alive() {
				live = append(live, e)
			} else {
				removed++
			}
		}
		clear(bucket[len(live):])
		c.setBucket(hash, live)
	}

	c.count -= removed
	c.threshold = c.count + c.refreshInterval

	c.logger.Debug("removed collected cache entries", "removed", removed, "remaining", c.count, "threshold", c.threshold)

	return removed
}

// All yields the live entries in no particular order
func (c *Cache[K, V]) All(yield func(*K, V) bool) {
	for _, bucket := range c.buckets {
		for _, e := range bucket {
			key := e.ref.Value()
			if key == nil {
				continue
			}
			if !yield(key, e.value) {
				return
			}
		}
	}
}

func (c *Cache[K, V]) insert(key *K, value V) {
	if c.count >= c.threshold {
		c.RemoveCollectedEntries()
	}

	ref := MakeReference(key, c.handles, c.comparer)
	c.buckets[ref.hash] = append(c.buckets[ref.hash], &entry[K, V]{ref: ref, value: value})
	c.count++
}

func (c *Cache[K, V]) find(key *K) *entry[K, V] {
	for _, e := range c.buckets[c.comparer.Hash(key)] {
		if c.matches(e, key) {
			return e
		}
	}
	return nil
}

func (c *Cache[K, V]) matches(e *entry[K, V], key *K) bool {
	referent := e.ref.Value()
	return referent != nil && c.comparer.Equal(referent, key)
}

func (c *Cache[K, V]) setBucket(hash uint64, bucket []*entry[K, V]) {
	if len(bucket) == 0 {
		delete(c.buckets, hash)
		return
	}
	c.buckets[hash] = bucket
}
