package descriptors

import (
	"fmt"
	"io"
	"strings"

	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/values"
	"gopkg.in/yaml.v2"
)

// Record is a loosely typed source object, typically decoded from a JSON document,
// whose shape is described by a Model
type Record struct {
	Type   string
	Fields map[string]any
}

func NewRecord(typeName string, fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{Type: typeName, Fields: fields}
}

// Model is a set of structured types declared in a YAML document
type Model struct {
	namespace string
	types     map[string]*StructuredType
	order     []*StructuredType
}

type modelDocument struct {
	Namespace string         `yaml:"namespace"`
	Types     []typeDocument `yaml:"types"`
}

type typeDocument struct {
	Name       string             `yaml:"name"`
	Kind       string             `yaml:"kind"`
	Keys       []string           `yaml:"keys"`
	Properties []propertyDocument `yaml:"properties"`
}

type propertyDocument struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Nullable     bool   `yaml:"nullable"`
	Serializable *bool  `yaml:"serializable"`
}

// LoadModel reads a model document such as
//
//	namespace: Demo
//	types:
//	  - name: Customer
//	    keys: [Id]
//	    properties:
//	      - name: Id
//	        type: Int32
//	      - name: Address
//	        type: Address
//	        nullable: true
//	      - name: Tags
//	        type: Collection(String)
//
// Property types are primitive kind names, with or without the Edm prefix, names of
// types declared in the same document or Collection(...) of either.
func LoadModel(data io.Reader) (*Model, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	doc := &modelDocument{}
	if err := yaml.Unmarshal(buf, doc); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	m := &Model{
		namespace: doc.Namespace,
		types:     map[string]*StructuredType{},
	}

	for _, td := range doc.Types {
		if td.Name == "" {
			return nil, errors.NewArgumentError("model type without a name")
		}
		if _, exists := m.types[td.Name]; exists {
			return nil, errors.NewDuplicateKeyError(fmt.Sprintf("type %s is declared more than once", td.Name))
		}

		st := newStructuredType(doc.Namespace, td.Name)
		m.types[td.Name] = st
		m.order = append(m.order, st)
	}

	for i, td := range doc.Types {
		st := m.order[i]

		for _, pd := range td.Properties {
			typ, serializable, err := m.resolve(pd.Type, pd.Nullable)
			if err != nil {
				return nil, fmt.Errorf("property %s of %s: %w", pd.Name, td.Name, err)
			}
			if pd.Serializable != nil {
				serializable = serializable && *pd.Serializable
			}

			prop := &Property{
				name:         pd.Name,
				typ:          typ,
				serializable: serializable,
				get:          recordGetter(pd.Name),
			}
			if pd.Name == "" || !st.add(prop) {
				return nil, errors.NewDuplicateKeyError(fmt.Sprintf("%s declares property %q more than once or without a name", td.Name, pd.Name))
			}
		}

		for _, key := range td.Keys {
			if _, ok := st.Property(key); !ok {
				return nil, errors.NewNotFoundError(fmt.Sprintf("key %s of %s is not a declared property", key, td.Name))
			}
		}

		switch strings.ToLower(td.Kind) {
		case "", "entity":
			st.setKeys(td.Keys)
		case "complex":
			if len(td.Keys) > 0 {
				return nil, errors.NewArgumentError(fmt.Sprintf("complex type %s cannot declare keys", td.Name))
			}
		default:
			return nil, errors.NewArgumentError(fmt.Sprintf("type %s has unknown kind %q", td.Name, td.Kind))
		}
	}

	return m, nil
}

func (m *Model) resolve(name string, nullable bool) (types.TypeReference, bool, error) {
	name = strings.TrimSpace(name)

	if inner, ok := strings.CutPrefix(name, "Collection("); ok && strings.HasSuffix(inner, ")") {
		element, serializable, err := m.resolve(strings.TrimSuffix(inner, ")"), true)
		if err != nil {
			return nil, false, err
		}
		return values.NewCollectionTypeReference(element, nullable), serializable, nil
	}

	if st, ok := m.lookup(name); ok {
		return st, true, nil
	}

	kind, err := types.ParseKind(name)
	if err != nil {
		return nil, false, errors.NewNotFoundError(fmt.Sprintf("unknown type %q", name))
	}

	return values.NewPrimitiveTypeReference(kind, nullable), kind != types.KindStream, nil
}

func (m *Model) lookup(name string) (*StructuredType, bool) {
	if m.namespace != "" {
		name = strings.TrimPrefix(name, m.namespace+".")
	}
	st, ok := m.types[name]
	return st, ok
}

func (m *Model) Namespace() string {
	return m.namespace
}

// Descriptor returns the type declared as name, with or without the namespace prefix
func (m *Model) Descriptor(name string) (TypeDescriptor, error) {
	st, ok := m.lookup(name)
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("type %s is not declared in the model", name))
	}
	return st, nil
}

// DescriptorFor returns the descriptor named by the Type of a *Record
func (m *Model) DescriptorFor(source any) (TypeDescriptor, error) {
	rec, ok := source.(*Record)
	if !ok || rec == nil {
		return nil, errors.NewArgumentError(fmt.Sprintf("cannot describe a %T, a *Record is required", source))
	}
	return m.Descriptor(rec.Type)
}

// Types returns the declared types in document order
func (m *Model) Types() []TypeDescriptor {
	result := make([]TypeDescriptor, 0, len(m.order))
	for _, st := range m.order {
		result = append(result, st)
	}
	return result
}

func recordGetter(name string) func(source any) (any, error) {
	return func(source any) (any, error) {
		switch s := source.(type) {
		case *Record:
			if s == nil {
				return nil, errors.NewArgumentError("source is a nil record")
			}
			return s.Fields[name], nil
		case map[string]any:
			return s[name], nil
		}
		return nil, errors.NewArgumentError(fmt.Sprintf("source of type %T is not a record", source))
	}
}
