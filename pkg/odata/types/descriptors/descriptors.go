package descriptors

import (
	"github.com/diwise/odata-values/pkg/odata/types"
)

// TypeDescriptor describes an entity or complex type. It doubles as the type reference
// of structured values of that type.
type TypeDescriptor interface {
	types.TypeReference

	Namespace() string
	Name() string
	Keys() []string
	Properties() []PropertyDescriptor
	Property(name string) (PropertyDescriptor, bool)
}

// PropertyDescriptor describes a declared property and knows how to read its current
// value from a source object
type PropertyDescriptor interface {
	Name() string
	Type() types.TypeReference
	Serializable() bool
	Get(source any) (any, error)
}

// Provider returns the descriptor of the type of a source object
type Provider interface {
	DescriptorFor(source any) (TypeDescriptor, error)
}

type StructuredType struct {
	namespace string
	name      string
	kind      types.TypeKind

	keys       []string
	properties []*Property
	index      map[string]int
}

func newStructuredType(namespace, name string) *StructuredType {
	return &StructuredType{
		namespace: namespace,
		name:      name,
		kind:      types.TypeKindComplex,
		index:     map[string]int{},
	}
}

func (st *StructuredType) FullName() string {
	if st.namespace == "" {
		return st.name
	}
	return st.namespace + "." + st.name
}

func (st *StructuredType) TypeKind() types.TypeKind { return st.kind }
func (st *StructuredType) Nullable() bool           { return true }
func (st *StructuredType) Namespace() string        { return st.namespace }
func (st *StructuredType) Name() string             { return st.name }

func (st *StructuredType) Keys() []string {
	return append([]string{}, st.keys...)
}

// Properties returns the declared properties in declaration order
func (st *StructuredType) Properties() []PropertyDescriptor {
	props := make([]PropertyDescriptor, 0, len(st.properties))
	for _, p := range st.properties {
		props = append(props, p)
	}
	return props
}

func (st *StructuredType) Property(name string) (PropertyDescriptor, bool) {
	idx, ok := st.index[name]
	if !ok {
		return nil, false
	}
	return st.properties[idx], true
}

func (st *StructuredType) add(p *Property) bool {
	if _, exists := st.index[p.name]; exists {
		return false
	}
	st.index[p.name] = len(st.properties)
	st.properties = append(st.properties, p)
	return true
}

func (st *StructuredType) setKeys(keys []string) {
	st.keys = keys
	if len(keys) > 0 {
		st.kind = types.TypeKindEntity
	}
}

type Property struct {
	name         string
	typ          types.TypeReference
	serializable bool
	get          func(source any) (any, error)
}

func (p *Property) Name() string              { return p.name }
func (p *Property) Type() types.TypeReference { return p.typ }
func (p *Property) Serializable() bool        { return p.serializable }

func (p *Property) Get(source any) (any, error) {
	return p.get(source)
}

// opaqueType stands in for Go types that have no EDM counterpart, e.g. funcs and channels
type opaqueType struct {
	name string
}

func (o *opaqueType) FullName() string         { return o.name }
func (o *opaqueType) TypeKind() types.TypeKind { return types.TypeKindNone }
func (o *opaqueType) Nullable() bool           { return true }
