package structured

import (
	"iter"
	"reflect"

	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/values"
)

// CollectionValue is a collection valued property. Its elements are read from the source
// on each enumeration.
type CollectionValue struct {
	typ   *values.CollectionTypeReference
	model any
	read  func() (any, error)
}

func (c *CollectionValue) ValueKind() types.ValueKind { return types.ValueKindCollection }
func (c *CollectionValue) Type() types.TypeReference  { return c.typ }

// Len returns the current number of elements
func (c *CollectionValue) Len() (int, error) {
	rv, err := c.current()
	if err != nil || !rv.IsValid() {
		return 0, err
	}
	return rv.Len(), nil
}

func (c *CollectionValue) Elements() iter.Seq2[types.Value, error] {
	return func(yield func(types.Value, error) bool) {
		rv, err := c.current()
		if err != nil {
			yield(nil, err)
			return
		}
		if !rv.IsValid() {
			return
		}

		for i := range rv.Len() {
			v, err := valueOf(element(rv.Index(i)), c.typ.Element(), c.model, c.elementReader(i))
			if !yield(v, err) {
				return
			}
		}
	}
}

// current returns the slice or array currently held by the source, or the zero Value when
// the source holds nil
func (c *CollectionValue) current() (reflect.Value, error) {
	raw, err := c.read()
	if err != nil {
		return reflect.Value{}, err
	}
	if isNil(raw) {
		return reflect.Value{}, nil
	}

	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, errors.NewConversionError(types.KindNone, raw, "collection property does not hold a slice")
	}

	return rv, nil
}

// elementReader re-reads element i, for collections nested in collections
func (c *CollectionValue) elementReader(i int) func() (any, error) {
	return func() (any, error) {
		rv, err := c.current()
		if err != nil || !rv.IsValid() || i >= rv.Len() {
			return nil, err
		}
		return element(rv.Index(i)), nil
	}
}

func element(ev reflect.Value) any {
	if ev.Kind() == reflect.Struct && ev.CanAddr() {
		return ev.Addr().Interface()
	}
	return ev.Interface()
}
