package weakcache

import (
	"bytes"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"testing"

	odataerrors "github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/matryer/is"
)

type record struct {
	id   string
	tags []string
}

// oracle decides liveness for the handles it creates, so that tests do not depend on
// garbage collector timing
type oracle struct {
	dead map[*record]bool
}

func newOracle() *oracle {
	return &oracle{dead: map[*record]bool{}}
}

func (o *oracle) handles(key *record) Handle[record] {
	return &fakeHandle{key: key, o: o}
}

func (o *oracle) collect(keys ...*record) {
	for _, k := range keys {
		o.dead[k] = true
	}
}

type fakeHandle struct {
	key *record
	o   *oracle
}

func (h *fakeHandle) Value() *record {
	if h.o.dead[h.key] {
		return nil
	}
	return h.key
}

func byID(r *record) string { return r.id }

func newCache(o *oracle, interval int) *Cache[record, int] {
	return New[record, int](
		RefreshInterval[record](interval),
		WithHandles[record](o.handles),
	)
}

func keys(n int) []*record {
	result := make([]*record, 0, n)
	for range n {
		result = append(result, &record{id: strings.Repeat("k", len(result)+1)})
	}
	return result
}

func TestThatNilKeysAreRejected(t *testing.T) {
	is := is.New(t)
	c := newCache(newOracle(), 5)

	err := c.Add(nil, 1)
	is.True(errors.Is(err, odataerrors.ErrArgument))

	err = c.Set(nil, 1)
	is.True(errors.Is(err, odataerrors.ErrArgument))

	is.Equal(c.Count(), 0) // should not have mutated the cache
	is.True(!c.ContainsKey(nil))
}

func TestThatDuplicateLiveKeysAreRejected(t *testing.T) {
	is := is.New(t)
	c := newCache(newOracle(), 5)
	k := &record{id: "a"}

	is.NoErr(c.Add(k, 1))

	err := c.Add(k, 2)
	is.True(errors.Is(err, odataerrors.ErrDuplicateKey))

	v, ok := c.Get(k)
	is.True(ok)
	is.Equal(v, 1) // should keep the first value
	is.Equal(c.Count(), 1)
}

func TestThatCollectedKeysBehaveAsAbsent(t *testing.T) {
	is := is.New(t)
	o := newOracle()
	c := newCache(o, 5)
	k := &record{id: "a"}

	is.NoErr(c.Add(k, 1))
	o.collect(k)

	is.True(!c.ContainsKey(k))
	_, ok := c.Get(k)
	is.True(!ok)
	is.True(!c.Remove(k))
	is.Equal(c.Count(), 1) // should still count the unswept entry

	is.Equal(c.RemoveCollectedEntries(), 1)
	is.Equal(c.Count(), 0)
}

func TestGetSetAndRemove(t *testing.T) {
	is := is.New(t)
	c := newCache(newOracle(), 5)
	a, b := &record{id: "a"}, &record{id: "b"}

	is.NoErr(c.Set(a, 1))
	is.NoErr(c.Set(a, 2))
	is.NoErr(c.Add(b, 3))
	is.Equal(c.Count(), 2)

	v, _ := c.Get(a)
	is.Equal(v, 2) // should have replaced the value

	is.True(c.Remove(a))
	is.True(!c.ContainsKey(a))
	is.True(c.ContainsKey(b))
	is.Equal(c.Count(), 1)

	seen := 0
	for k, v := range c.All {
		is.Equal(k, b)
		is.Equal(v, 3)
		seen++
	}
	is.Equal(seen, 1)
}

func TestThatIdentityComparerSeparatesEqualLookingKeys(t *testing.T) {
	is := is.New(t)
	c := newCache(newOracle(), 5)

	is.NoErr(c.Add(&record{id: "a"}, 1))
	is.NoErr(c.Add(&record{id: "a"}, 2)) // should accept another object with the same id

	is.True(!c.ContainsKey(&record{id: "a"}))
}

func TestThatKeyComparerUsesLogicalIdentity(t *testing.T) {
	is := is.New(t)
	o := newOracle()
	c := New[record, int](
		WithComparer(KeyComparer(byID)),
		WithHandles[record](o.handles),
	)

	first := &record{id: "a"}
	is.NoErr(c.Add(first, 1))

	err := c.Add(&record{id: "a"}, 2)
	is.True(errors.Is(err, odataerrors.ErrDuplicateKey)) // should compare by id

	is.True(c.ContainsKey(&record{id: "a"}))

	o.collect(first)
	is.True(!c.ContainsKey(&record{id: "a"})) // should not match a fresh key once collected
	is.NoErr(c.Add(&record{id: "a"}, 3))
}

func TestThatSweepsAreAmortized(t *testing.T) {
	is := is.New(t)
	o := newOracle()
	c := newCache(o, 5)
	k := keys(11)

	for _, key := range k[:5] {
		is.NoErr(c.Add(key, 0))
	}

	o.collect(k[:5]...)
	is.Equal(c.RemoveCollectedEntries(), 5)
	is.Equal(c.Count(), 0)

	is.NoErr(c.Add(k[5], 0))
	o.collect(k[5])

	for _, key := range k[6:10] {
		is.NoErr(c.Add(key, 0))
	}
	is.Equal(c.Count(), 5) // should not sweep before the threshold is reached

	is.NoErr(c.Add(k[10], 0))
	is.Equal(c.Count(), 5) // should sweep the collected key before inserting
	is.True(!c.ContainsKey(k[5]))
}

func TestThatThresholdCountsSurvivors(t *testing.T) {
	is := is.New(t)
	o := newOracle()
	c := newCache(o, 5)
	k := keys(11)

	for _, key := range k[:6] {
		is.NoErr(c.Add(key, 0)) // the sixth add sweeps nothing and moves the threshold to 10
	}

	o.collect(k[0])

	for _, key := range k[6:10] {
		is.NoErr(c.Add(key, 0))
	}
	is.Equal(c.Count(), 10)

	is.NoErr(c.Add(k[10], 0))
	is.Equal(c.Count(), 10) // should have swept one entry and added one
}

func TestReferenceEquality(t *testing.T) {
	is := is.New(t)
	o := newOracle()
	cmp := KeyComparer(byID)

	k := &record{id: "a"}
	r1 := MakeReference(k, o.handles, cmp)
	r2 := MakeReference(k, o.handles, cmp)

	is.True(Equal(cmp, r1, r2)) // should be equal while the referent is alive

	o.collect(k)

	is.True(!Equal(cmp, r1, r1)) // should not even equal itself once collected
	is.True(!Equal(cmp, r1, MakeReference(&record{id: "a"}, o.handles, cmp)))
	is.True(!r1.Alive())
}

func TestThatSweepsAreLogged(t *testing.T) {
	is := is.New(t)
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := New[record, int](WithLogger[record](logger))
	c.RemoveCollectedEntries()

	is.True(strings.Contains(buf.String(), "removed=0"))
}

func TestThatGarbageCollectedKeysAreSwept(t *testing.T) {
	is := is.New(t)
	c := New[record, int]()

	func() {
		is.NoErr(c.Add(&record{id: "temporary", tags: []string{"x"}}, 1))
	}()

	kept := &record{id: "kept"}
	is.NoErr(c.Add(kept, 2))

	removed := 0
	for i := 0; i < 10 && removed == 0; i++ {
		runtime.GC()
		removed = c.RemoveCollectedEntries()
	}

	is.Equal(removed, 1) // should have observed the collection
	is.Equal(c.Count(), 1)
	is.True(c.ContainsKey(kept))

	runtime.KeepAlive(kept)
}
