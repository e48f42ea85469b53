// Package structured exposes entity and complex objects as lazily projected EDM values.
// Property values are read from the source object on every access and are never cached,
// so a structured value always reflects the current state of its source.
package structured

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/diwise/odata-values/pkg/odata/convert"
	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/spatial"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/descriptors"
	"github.com/diwise/odata-values/pkg/odata/types/values"
)

type StructuredValue struct {
	source     any
	descriptor descriptors.TypeDescriptor
	model      any
}

// New wraps source, which must be readable by the property getters of descriptor. The
// model is carried along for consumers and passed on to nested values.
func New(source any, descriptor descriptors.TypeDescriptor, model any) *StructuredValue {
	return &StructuredValue{
		source:     source,
		descriptor: descriptor,
		model:      model,
	}
}

// FromObject wraps source using the descriptor that provider returns for it
func FromObject(source any, provider descriptors.Provider, model any) (*StructuredValue, error) {
	if source == nil {
		return nil, errors.NewArgumentError("source object must not be nil")
	}
	if provider == nil {
		return nil, errors.NewArgumentError("a type descriptor provider is required")
	}

	td, err := provider.DescriptorFor(source)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %T: %w", source, err)
	}

	return New(source, td, model), nil
}

func (sv *StructuredValue) ValueKind() types.ValueKind { return types.ValueKindStructured }
func (sv *StructuredValue) Type() types.TypeReference  { return sv.descriptor }

func (sv *StructuredValue) Descriptor() descriptors.TypeDescriptor { return sv.descriptor }
func (sv *StructuredValue) Source() any                            { return sv.source }
func (sv *StructuredValue) Model() any                             { return sv.model }

// FindPropertyValue projects the current value of the named property. Properties that are
// not declared, or declared but not serializable, are reported as not found.
func (sv *StructuredValue) FindPropertyValue(name string) (types.PropertyValue, bool, error) {
	prop, ok := sv.descriptor.Property(name)
	if !ok || !prop.Serializable() {
		return nil, false, nil
	}

	v, err := sv.project(prop)
	if err != nil {
		return nil, true, err
	}

	return values.NewProperty(name, v), true, nil
}

// PropertyValues yields the serializable properties in declaration order. A property that
// fails to project is yielded as an error and the iteration may continue.
func (sv *StructuredValue) PropertyValues() iter.Seq2[types.PropertyValue, error] {
	return func(yield func(types.PropertyValue, error) bool) {
		for _, prop := range sv.descriptor.Properties() {
			if !prop.Serializable() {
				continue
			}

			v, err := sv.project(prop)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}

			if !yield(values.NewProperty(prop.Name(), v), nil) {
				return
			}
		}
	}
}

// KeyValues returns the current values of the key properties, in key order
func (sv *StructuredValue) KeyValues() ([]types.PropertyValue, error) {
	keys := sv.descriptor.Keys()
	result := make([]types.PropertyValue, 0, len(keys))

	for _, key := range keys {
		pv, found, err := sv.FindPropertyValue(key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.NewNotFoundError(fmt.Sprintf("key property %s of %s is not serializable", key, sv.descriptor.FullName()))
		}
		result = append(result, pv)
	}

	return result, nil
}

func (sv *StructuredValue) project(prop descriptors.PropertyDescriptor) (types.Value, error) {
	read := func() (any, error) {
		return prop.Get(sv.source)
	}

	raw, err := read()
	if err != nil {
		return nil, fmt.Errorf("failed to read property %s of %s: %w", prop.Name(), sv.descriptor.FullName(), err)
	}

	v, err := valueOf(raw, prop.Type(), sv.model, read)
	if err != nil {
		return nil, fmt.Errorf("property %s of %s: %w", prop.Name(), sv.descriptor.FullName(), err)
	}

	return v, nil
}

// valueOf projects raw as a value of the declared type. Collections keep read so that
// every enumeration goes back to the source.
func valueOf(raw any, typ types.TypeReference, model any, read func() (any, error)) (types.Value, error) {
	if isNil(raw) {
		return values.NewNull(typ), nil
	}

	switch t := typ.(type) {
	case descriptors.TypeDescriptor:
		return New(raw, t, model), nil
	case *values.CollectionTypeReference:
		return &CollectionValue{typ: t, model: model, read: read}, nil
	case *values.PrimitiveTypeReference:
		if body, ok := raw.(map[string]any); ok && t.PrimitiveKind().IsSpatial() {
			// GeoJSON decoded into a generic map
			g, err := spatial.Unmarshal(body)
			if err != nil {
				return nil, errors.WrapConversionError(t.PrimitiveKind(), raw, err)
			}
			raw = g
		}

		v, err := convert.ToTypedValue(raw, t.PrimitiveKind())
		if err != nil {
			return nil, err
		}
		if pv, ok := v.(types.PrimitiveValue); ok && t.Nullable() {
			return values.NewPrimitive(pv.PrimitiveKind(), pv.Payload(), values.Nullable()), nil
		}
		return v, nil
	}

	return nil, errors.NewConversionError(types.KindNone, raw, "type "+typ.FullName()+" has no value projection")
}

func isNil(raw any) bool {
	if raw == nil {
		return true
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}
