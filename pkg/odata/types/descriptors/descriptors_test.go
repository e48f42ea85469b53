package descriptors

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	odataerrors "github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/values"
	"github.com/matryer/is"
)

type address struct {
	Street string
	City   string
}

type customer struct {
	Id       int32
	Name     string
	Born     *time.Time
	Home     address
	Previous []address
	Tags     []string
	Manager  *customer
	Photo    []byte `odata:",stream"`
	Mime     string `odata:"PhotoType,mime"`
	Notes    io.Reader
	Callback func()
	Secret   string `odata:"-"`
	hidden   string
}

type Audit struct {
	CreatedBy string
}

type order struct {
	Number string `odata:"OrderNo,key"`
	Count  int    `odata:",kind=Int32"`
	Audit
}

func TestThatReflectionDescribesPropertiesInDeclarationOrder(t *testing.T) {
	is := is.New(t)

	td, err := NewReflectionProvider("Demo").DescriptorFor(&customer{})
	is.NoErr(err)

	is.Equal(td.FullName(), "Demo.customer")
	is.Equal(td.TypeKind(), types.TypeKindEntity) // should be an entity by the Id convention
	is.Equal(td.Keys(), []string{"Id"})
	is.True(td.Nullable())

	names := []string{}
	for _, p := range td.Properties() {
		names = append(names, p.Name())
	}
	is.Equal(names, []string{"Id", "Name", "Born", "Home", "Previous", "Tags", "Manager", "Photo", "PhotoType", "Notes", "Callback"})
}

func TestThatReflectionMapsPropertyTypes(t *testing.T) {
	is := is.New(t)

	td, err := NewReflectionProvider("Demo").Describe(reflect.TypeFor[customer]())
	is.NoErr(err)

	id, _ := td.Property("Id")
	is.Equal(id.Type().FullName(), "Edm.Int32")
	is.True(!id.Type().Nullable())

	born, _ := td.Property("Born")
	is.Equal(born.Type().FullName(), "Edm.DateTimeOffset")
	is.True(born.Type().Nullable()) // should be nullable as a pointer

	home, _ := td.Property("Home")
	is.Equal(home.Type().FullName(), "Demo.address")
	is.Equal(home.Type().TypeKind(), types.TypeKindComplex)

	previous, _ := td.Property("Previous")
	is.Equal(previous.Type().FullName(), "Collection(Demo.address)")

	tags, _ := td.Property("Tags")
	is.Equal(tags.Type().FullName(), "Collection(Edm.String)")

	manager, _ := td.Property("Manager")
	is.Equal(manager.Type(), td) // should resolve the self reference to the same descriptor
}

func TestThatOpaqueAndTaggedFieldsAreNotSerializable(t *testing.T) {
	is := is.New(t)

	td, err := NewReflectionProvider("Demo").DescriptorFor(customer{})
	is.NoErr(err)

	for _, name := range []string{"Photo", "PhotoType", "Notes", "Callback"} {
		p, ok := td.Property(name)
		is.True(ok)
		is.True(!p.Serializable()) // should not be serializable
	}

	notes, _ := td.Property("Notes")
	is.Equal(notes.Type().FullName(), "Edm.Stream")

	_, ok := td.Property("Secret")
	is.True(!ok) // should be skipped by the dash tag
	_, ok = td.Property("hidden")
	is.True(!ok) // should ignore unexported fields
}

func TestThatTagsRenameKeyAndRetypeProperties(t *testing.T) {
	is := is.New(t)

	td, err := NewReflectionProvider("Sales").DescriptorFor(&order{})
	is.NoErr(err)

	is.Equal(td.Keys(), []string{"OrderNo"})

	count, ok := td.Property("Count")
	is.True(ok)
	is.Equal(count.Type().FullName(), "Edm.Int32")

	createdBy, ok := td.Property("CreatedBy")
	is.True(ok) // should promote fields of exported embedded structs

	v, err := createdBy.Get(&order{Audit: Audit{CreatedBy: "kim"}})
	is.NoErr(err)
	is.Equal(v, "kim")
}

func TestThatGettersReadTheCurrentFieldValue(t *testing.T) {
	is := is.New(t)

	td, err := NewReflectionProvider("Demo").DescriptorFor(&customer{})
	is.NoErr(err)

	c := &customer{Id: 1, Home: address{City: "Sundsvall"}}
	id, _ := td.Property("Id")
	home, _ := td.Property("Home")

	v, err := id.Get(c)
	is.NoErr(err)
	is.Equal(v, int32(1))

	c.Id = 11
	v, _ = id.Get(c)
	is.Equal(v, int32(11))

	h, err := home.Get(c)
	is.NoErr(err)
	is.Equal(h.(*address), &c.Home) // should hand out the address of struct fields

	_, err = id.Get(&order{})
	is.True(errors.Is(err, odataerrors.ErrArgument)) // should reject sources of another type
}

func TestThatDescriptorsAreSharedPerType(t *testing.T) {
	is := is.New(t)

	p := NewReflectionProvider("Demo")
	first, _ := p.DescriptorFor(&customer{})
	second, _ := p.DescriptorFor(customer{})

	is.Equal(first, second)
}

func TestThatNonStructsCannotBeDescribed(t *testing.T) {
	is := is.New(t)

	p := NewReflectionProvider("Demo")

	_, err := p.DescriptorFor(42)
	is.True(errors.Is(err, odataerrors.ErrArgument))

	_, err = p.DescriptorFor(time.Now())
	is.True(errors.Is(err, odataerrors.ErrArgument)) // should refuse primitive structs

	_, err = p.DescriptorFor(nil)
	is.True(errors.Is(err, odataerrors.ErrArgument))
}

const model string = `
namespace: Demo
types:
  - name: Customer
    keys: [Id]
    properties:
      - name: Id
        type: Int32
      - name: Name
        type: Edm.String
        nullable: true
      - name: Home
        type: Address
      - name: Tags
        type: Collection(String)
      - name: Photo
        type: Stream
      - name: Internal
        type: String
        serializable: false
  - name: Address
    kind: complex
    properties:
      - name: City
        type: String
`

func TestLoadModel(t *testing.T) {
	is := is.New(t)

	m, err := LoadModel(bytes.NewBufferString(model))
	is.NoErr(err)

	is.Equal(len(m.Types()), 2)

	c, err := m.Descriptor("Demo.Customer")
	is.NoErr(err)
	is.Equal(c.TypeKind(), types.TypeKindEntity)
	is.Equal(c.Keys(), []string{"Id"})

	name, _ := c.Property("Name")
	is.True(name.Type().Nullable())

	home, _ := c.Property("Home")
	addr, _ := m.Descriptor("Address")
	is.Equal(home.Type(), addr) // should resolve forward references
	is.Equal(addr.TypeKind(), types.TypeKindComplex)

	tags, _ := c.Property("Tags")
	ctr, ok := tags.Type().(*values.CollectionTypeReference)
	is.True(ok)
	is.Equal(ctr.Element().FullName(), "Edm.String")

	photo, _ := c.Property("Photo")
	is.True(!photo.Serializable())
	internal, _ := c.Property("Internal")
	is.True(!internal.Serializable())
}

func TestThatRecordGettersReadFields(t *testing.T) {
	is := is.New(t)

	m, err := LoadModel(strings.NewReader(model))
	is.NoErr(err)

	rec := NewRecord("Customer", map[string]any{"Id": 7})

	td, err := m.DescriptorFor(rec)
	is.NoErr(err)

	id, _ := td.Property("Id")
	v, err := id.Get(rec)
	is.NoErr(err)
	is.Equal(v, 7)

	name, _ := td.Property("Name")
	v, err = name.Get(map[string]any{"Name": "Ada"})
	is.NoErr(err)
	is.Equal(v, "Ada")

	_, err = m.DescriptorFor(NewRecord("Vendor", nil))
	is.True(errors.Is(err, odataerrors.ErrNotFound))
}

func TestThatInvalidModelsAreRejected(t *testing.T) {
	is := is.New(t)

	_, err := LoadModel(strings.NewReader("types:\n  - name: A\n    properties:\n      - name: B\n        type: Unknown\n"))
	is.True(errors.Is(err, odataerrors.ErrNotFound)) // should report the unknown type

	_, err = LoadModel(strings.NewReader("types:\n  - name: A\n  - name: A\n"))
	is.True(errors.Is(err, odataerrors.ErrDuplicateKey))

	_, err = LoadModel(strings.NewReader("types:\n  - name: A\n    keys: [Id]\n"))
	is.True(errors.Is(err, odataerrors.ErrNotFound)) // should require keys to be declared properties

	_, err = LoadModel(strings.NewReader("types: [\n"))
	is.True(err != nil)
}
