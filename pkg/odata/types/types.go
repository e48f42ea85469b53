package types

import "iter"

type ValueKind int

const (
	ValueKindNone ValueKind = iota
	ValueKindPrimitive
	ValueKindStructured
	ValueKindCollection
	ValueKindNull
)

func (k ValueKind) String() string {
	switch k {
	case ValueKindPrimitive:
		return "Primitive"
	case ValueKindStructured:
		return "Structured"
	case ValueKindCollection:
		return "Collection"
	case ValueKindNull:
		return "Null"
	default:
		return "None"
	}
}

type TypeKind int

const (
	TypeKindNone TypeKind = iota
	TypeKindPrimitive
	TypeKindEntity
	TypeKindComplex
	TypeKindCollection
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindPrimitive:
		return "Primitive"
	case TypeKindEntity:
		return "Entity"
	case TypeKindComplex:
		return "Complex"
	case TypeKindCollection:
		return "Collection"
	default:
		return "None"
	}
}

// IsStructured reports whether the type kind describes an entity or a complex type
func (k TypeKind) IsStructured() bool {
	return k == TypeKindEntity || k == TypeKindComplex
}

type TypeReference interface {
	FullName() string
	TypeKind() TypeKind
	Nullable() bool
}

type Value interface {
	ValueKind() ValueKind
	Type() TypeReference
}

type PrimitiveValue interface {
	Value

	PrimitiveKind() PrimitiveTypeKind
	Payload() any
}

type PropertyValue interface {
	Name() string
	Value() Value
}

type StructuredValue interface {
	Value

	FindPropertyValue(name string) (PropertyValue, bool, error)
	PropertyValues() iter.Seq2[PropertyValue, error]
}

type CollectionValue interface {
	Value

	Elements() iter.Seq2[Value, error]
}
