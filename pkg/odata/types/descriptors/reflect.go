package descriptors

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/diwise/odata-values/pkg/odata/convert"
	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/values"
)

// ReflectionProvider derives type descriptors from Go struct types. Exported fields become
// properties in declaration order and can be tuned with an odata struct tag:
//
//	ID       int       `odata:",key"`
//	Payload  []byte    `odata:"Content,stream"`
//	MimeType string    `odata:",mime"`
//	Count    int       `odata:",kind=Int32"`
//	Internal string    `odata:"-"`
//
// Fields tagged stream or mime, as well as fields of opaque Go types (readers, funcs,
// channels, maps and interfaces), are declared but not serializable.
type ReflectionProvider struct {
	namespace string

	mu    sync.Mutex
	known map[reflect.Type]*StructuredType
}

func NewReflectionProvider(namespace string) *ReflectionProvider {
	return &ReflectionProvider{
		namespace: namespace,
		known:     map[reflect.Type]*StructuredType{},
	}
}

func (p *ReflectionProvider) DescriptorFor(source any) (TypeDescriptor, error) {
	if source == nil {
		return nil, errors.NewArgumentError("cannot describe a nil source")
	}

	t := reflect.TypeOf(source)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return p.Describe(t)
}

// Describe returns the descriptor for the struct type t. Descriptors are built once per
// type and shared by all later calls.
func (p *ReflectionProvider) Describe(t reflect.Type) (TypeDescriptor, error) {
	if t == nil {
		return nil, errors.NewArgumentError("cannot describe a nil type")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pending := map[reflect.Type]*StructuredType{}
	st, err := p.describe(t, pending)
	if err != nil {
		return nil, err
	}

	for pt, pst := range pending {
		p.known[pt] = pst
	}

	return st, nil
}

func (p *ReflectionProvider) describe(t reflect.Type, pending map[reflect.Type]*StructuredType) (*StructuredType, error) {
	if st, ok := p.known[t]; ok {
		return st, nil
	}
	if st, ok := pending[t]; ok {
		return st, nil
	}

	if t.Kind() != reflect.Struct {
		return nil, errors.NewArgumentError(fmt.Sprintf("%s is not a struct type", t))
	}
	if _, primitive := convert.KindOf(t); primitive {
		return nil, errors.NewArgumentError(fmt.Sprintf("%s is a primitive type", t))
	}

	st := newStructuredType(p.namespace, typeName(t))
	// registered before its fields so that self referencing types resolve
	pending[t] = st

	var keys []string

	for _, f := range reflect.VisibleFields(t) {
		if (f.Anonymous && embedsStruct(f.Type)) || !f.IsExported() || !reachable(t, f.Index) {
			continue
		}

		tag := parseTag(f)
		if tag.skip {
			continue
		}

		typ, serializable, err := p.propertyType(f.Type, tag, pending)
		if err != nil {
			return nil, fmt.Errorf("property %s of %s: %w", tag.name, t, err)
		}

		prop := &Property{
			name:         tag.name,
			typ:          typ,
			serializable: serializable && !tag.stream && !tag.mime,
			get:          fieldGetter(t, f.Index),
		}
		if !st.add(prop) {
			return nil, errors.NewDuplicateKeyError(fmt.Sprintf("%s declares property %s more than once", t, tag.name))
		}

		if tag.key {
			keys = append(keys, tag.name)
		}
	}

	if len(keys) == 0 {
		keys = conventionalKeys(st)
	}
	st.setKeys(keys)

	return st, nil
}

func (p *ReflectionProvider) propertyType(t reflect.Type, tag fieldTag, pending map[reflect.Type]*StructuredType) (types.TypeReference, bool, error) {
	nullable := tag.nullable || isNilable(t)

	if tag.kind != types.KindNone {
		return values.NewPrimitiveTypeReference(tag.kind, nullable), tag.kind != types.KindStream, nil
	}

	if k, ok := convert.KindOf(t); ok {
		return values.NewPrimitiveTypeReference(k, nullable), true, nil
	}

	if t.Implements(readerType) {
		return values.NewPrimitiveTypeReference(types.KindStream, true), false, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if k, ok := convert.KindOf(t.Elem()); ok {
			return values.NewPrimitiveTypeReference(k, true), true, nil
		}
		if t.Elem().Kind() == reflect.Struct {
			st, err := p.describe(t.Elem(), pending)
			return st, err == nil, err
		}
	case reflect.Struct:
		st, err := p.describe(t, pending)
		return st, err == nil, err
	case reflect.Slice, reflect.Array:
		element, serializable, err := p.propertyType(t.Elem(), fieldTag{}, pending)
		if err != nil {
			return nil, false, err
		}
		return values.NewCollectionTypeReference(element, true), serializable, nil
	}

	return &opaqueType{name: t.String()}, false, nil
}

// fieldGetter reads the field at index from a source of type owner, or a pointer to one.
// Struct valued fields are returned by address when possible so that nested values
// observe later changes to the source.
func fieldGetter(owner reflect.Type, index []int) func(source any) (any, error) {
	return func(source any) (any, error) {
		v := reflect.ValueOf(source)
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, errors.NewArgumentError(fmt.Sprintf("source is a nil %s", v.Type()))
			}
			v = v.Elem()
		}

		if !v.IsValid() || v.Type() != owner {
			return nil, errors.NewArgumentError(fmt.Sprintf("source of type %T is not a %s", source, owner))
		}

		f, err := v.FieldByIndexErr(index)
		if err != nil {
			// promoted through a nil embedded pointer
			return nil, nil
		}

		if f.Kind() == reflect.Struct && f.CanAddr() {
			return f.Addr().Interface(), nil
		}

		return f.Interface(), nil
	}
}

var readerType = reflect.TypeFor[io.Reader]()

func isNilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

func embedsStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// reachable reports whether every embedded struct on the path to a promoted field is
// exported, as reflection cannot read values through unexported embeddings
func reachable(t reflect.Type, index []int) bool {
	for i := 1; i < len(index); i++ {
		f := t.FieldByIndex(index[:i])
		if !f.IsExported() {
			return false
		}
	}
	return true
}

func typeName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return "Anonymous"
	}
	// instantiated generic types carry their type arguments in brackets
	if idx := strings.IndexByte(name, '['); idx > 0 {
		name = name[:idx]
	}
	return name
}

func conventionalKeys(st *StructuredType) []string {
	for _, candidate := range []string{"ID", "Id", st.name + "ID", st.name + "Id"} {
		prop, ok := st.Property(candidate)
		if !ok {
			continue
		}
		if _, primitive := prop.Type().(*values.PrimitiveTypeReference); primitive {
			return []string{candidate}
		}
	}
	return nil
}

type fieldTag struct {
	name     string
	kind     types.PrimitiveTypeKind
	key      bool
	nullable bool
	stream   bool
	mime     bool
	skip     bool
}

func parseTag(f reflect.StructField) fieldTag {
	tag := fieldTag{name: f.Name}

	raw, ok := f.Tag.Lookup("odata")
	if !ok {
		return tag
	}
	if raw == "-" {
		tag.skip = true
		return tag
	}

	parts := strings.Split(raw, ",")
	if parts[0] != "" {
		tag.name = parts[0]
	}

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "key":
			tag.key = true
		case opt == "nullable":
			tag.nullable = true
		case opt == "stream":
			tag.stream = true
		case opt == "mime":
			tag.mime = true
		case strings.HasPrefix(opt, "kind="):
			if k, err := types.ParseKind(strings.TrimPrefix(opt, "kind=")); err == nil {
				tag.kind = k
			}
		}
	}

	return tag
}
