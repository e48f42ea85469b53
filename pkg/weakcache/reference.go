package weakcache

import (
	"hash/maphash"
	"weak"

	"github.com/cespare/xxhash/v2"
)

// Handle is a weak handle to a key. Value returns nil once the key has been collected.
// weak.Pointer satisfies it, as does any caller supplied liveness oracle.
type Handle[K any] interface {
	Value() *K
}

type HandleFunc[K any] func(key *K) Handle[K]

func weakHandle[K any](key *K) Handle[K] {
	return weak.Make(key)
}

// Comparer decides key equality for a cache. Hash must agree with Equal.
type Comparer[K any] interface {
	Hash(key *K) uint64
	Equal(a, b *K) bool
}

type identityComparer[K any] struct {
	seed maphash.Seed
}

// IdentityComparer treats two keys as equal only when they are the same object
func IdentityComparer[K any]() Comparer[K] {
	return &identityComparer[K]{seed: maphash.MakeSeed()}
}

func (c *identityComparer[K]) Hash(key *K) uint64 {
	return maphash.Comparable(c.seed, key)
}

func (c *identityComparer[K]) Equal(a, b *K) bool {
	return a == b
}

type keyComparer[K any] struct {
	id func(*K) string
}

// KeyComparer treats two keys as equal when id returns the same logical identifier
// for both of them
func KeyComparer[K any](id func(*K) string) Comparer[K] {
	return &keyComparer[K]{id: id}
}

func (c *keyComparer[K]) Hash(key *K) uint64 {
	return xxhash.Sum64String(c.id(key))
}

func (c *keyComparer[K]) Equal(a, b *K) bool {
	return c.id(a) == c.id(b)
}

// Reference is a weak reference to a key together with the hash the key had when the
// reference was made
type Reference[K any] struct {
	handle Handle[K]
	hash   uint64
}

func MakeReference[K any](key *K, handles HandleFunc[K], comparer Comparer[K]) Reference[K] {
	return Reference[K]{
		handle: handles(key),
		hash:   comparer.Hash(key),
	}
}

// Value returns the referent, or nil if it has been collected
func (r Reference[K]) Value() *K {
	if r.handle == nil {
		return nil
	}
	return r.handle.Value()
}

func (r Reference[K]) Alive() bool {
	return r.Value() != nil
}

func (r Reference[K]) Hash() uint64 {
	return r.hash
}

// Equal reports whether a and b refer to equal live keys. A reference whose referent
// has been collected is not equal to anything, itself included.
func Equal[K any](comparer Comparer[K], a, b Reference[K]) bool {
	ka, kb := a.Value(), b.Value()
	if ka == nil || kb == nil {
		return false
	}
	return a.hash == b.hash && comparer.Equal(ka, kb)
}
