package values

import (
	"bytes"
	"iter"

	"github.com/diwise/odata-values/pkg/odata/types"
)

// PrimitiveTypeReference refers to one of the EDM primitive types
type PrimitiveTypeReference struct {
	kind     types.PrimitiveTypeKind
	nullable bool
}

func NewPrimitiveTypeReference(kind types.PrimitiveTypeKind, nullable bool) *PrimitiveTypeReference {
	return &PrimitiveTypeReference{kind: kind, nullable: nullable}
}

func (r *PrimitiveTypeReference) FullName() string                       { return r.kind.EdmName() }
func (r *PrimitiveTypeReference) TypeKind() types.TypeKind               { return types.TypeKindPrimitive }
func (r *PrimitiveTypeReference) Nullable() bool                         { return r.nullable }
func (r *PrimitiveTypeReference) PrimitiveKind() types.PrimitiveTypeKind { return r.kind }

// CollectionTypeReference refers to an ordered collection of elements of a single type
type CollectionTypeReference struct {
	element  types.TypeReference
	nullable bool
}

func NewCollectionTypeReference(element types.TypeReference, nullable bool) *CollectionTypeReference {
	return &CollectionTypeReference{element: element, nullable: nullable}
}

func (r *CollectionTypeReference) FullName() string {
	return "Collection(" + r.element.FullName() + ")"
}

func (r *CollectionTypeReference) TypeKind() types.TypeKind     { return types.TypeKindCollection }
func (r *CollectionTypeReference) Nullable() bool               { return r.nullable }
func (r *CollectionTypeReference) Element() types.TypeReference { return r.element }

// Primitive holds an immutable payload of a single primitive kind
type Primitive struct {
	typ     *PrimitiveTypeReference
	payload any
}

type PrimitiveDecoratorFunc func(p *Primitive)

// Nullable marks the type of the primitive value as nullable
func Nullable() PrimitiveDecoratorFunc {
	return func(p *Primitive) {
		p.typ = NewPrimitiveTypeReference(p.typ.kind, true)
	}
}

// NewPrimitive wraps payload without validating it against kind. Use the convert
// package to obtain checked values from arbitrary input.
func NewPrimitive(kind types.PrimitiveTypeKind, payload any, decorators ...PrimitiveDecoratorFunc) *Primitive {
	if b, ok := payload.([]byte); ok {
		payload = bytes.Clone(b)
	}

	p := &Primitive{
		typ:     NewPrimitiveTypeReference(kind, false),
		payload: payload,
	}

	for _, decorator := range decorators {
		decorator(p)
	}

	return p
}

func (p *Primitive) ValueKind() types.ValueKind             { return types.ValueKindPrimitive }
func (p *Primitive) Type() types.TypeReference              { return p.typ }
func (p *Primitive) PrimitiveKind() types.PrimitiveTypeKind { return p.typ.kind }

func (p *Primitive) Payload() any {
	if b, ok := p.payload.([]byte); ok {
		return bytes.Clone(b)
	}
	return p.payload
}

// Null is the absence of a value of a given type
type Null struct {
	typ types.TypeReference
}

// NewNull returns a null value. typ may be nil for an untyped null.
func NewNull(typ types.TypeReference) *Null {
	return &Null{typ: typ}
}

func (n *Null) ValueKind() types.ValueKind { return types.ValueKindNull }
func (n *Null) Type() types.TypeReference  { return n.typ }

// Collection is an already materialized sequence of values
type Collection struct {
	typ      *CollectionTypeReference
	elements []types.Value
}

func NewCollection(element types.TypeReference, elements ...types.Value) *Collection {
	return &Collection{
		typ:      NewCollectionTypeReference(element, false),
		elements: append([]types.Value{}, elements...),
	}
}

func (c *Collection) ValueKind() types.ValueKind { return types.ValueKindCollection }
func (c *Collection) Type() types.TypeReference  { return c.typ }

func (c *Collection) Elements() iter.Seq2[types.Value, error] {
	return func(yield func(types.Value, error) bool) {
		for _, e := range c.elements {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Property pairs a property name with its value
type Property struct {
	name  string
	value types.Value
}

func NewProperty(name string, value types.Value) *Property {
	return &Property{name: name, value: value}
}

func (p *Property) Name() string       { return p.name }
func (p *Property) Value() types.Value { return p.value }
