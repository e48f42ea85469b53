package serialize

import (
	"errors"
	"math"
	"testing"
	"time"

	odataerrors "github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/spatial"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/descriptors"
	"github.com/diwise/odata-values/pkg/odata/types/structured"
	"github.com/diwise/odata-values/pkg/odata/types/values"
	"github.com/google/uuid"
	"github.com/matryer/is"
	"github.com/shopspring/decimal"
)

type Place struct {
	Name     string
	Location spatial.Point
}

type Visit struct {
	Id       int32
	When     time.Time
	Stay     time.Duration
	Cost     decimal.Decimal
	Place    Place
	Guests   []string
	Note     *string
	Checksum []byte
	Raw      []byte `odata:",stream"`
}

func TestMarshalStructuredValue(t *testing.T) {
	is := is.New(t)

	v := &Visit{
		Id:       7,
		When:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stay:     90 * time.Minute,
		Cost:     decimal.RequireFromString("12.50"),
		Place:    Place{Name: "Kiosk", Location: *spatial.NewPoint(17.3, 62.4)},
		Guests:   []string{"Ada", "Kim"},
		Checksum: []byte{0xfb, 0xff},
	}

	sv, err := structured.FromObject(v, descriptors.NewReflectionProvider("Demo"), nil)
	is.NoErr(err)

	b, err := Marshal(sv)
	is.NoErr(err)

	const expected string = `{"@odata.type":"#Demo.Visit","Id":7,"When":"2024-05-01T12:00:00Z","Stay":"PT1H30M","Cost":12.5,` +
		`"Place":{"@odata.type":"#Demo.Place","Name":"Kiosk","Location":{"type":"Point","coordinates":[17.3,62.4]}},` +
		`"Guests":["Ada","Kim"],"Note":null,"Checksum":"-_8="}`

	is.Equal(string(b), expected)
}

func TestMarshalPrimitives(t *testing.T) {
	is := is.New(t)

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	cases := []struct {
		value    types.Value
		expected string
	}{
		{values.NewPrimitive(types.KindBoolean, true), `true`},
		{values.NewPrimitive(types.KindInt64, int64(-3)), `-3`},
		{values.NewPrimitive(types.KindByte, uint8(200)), `200`},
		{values.NewPrimitive(types.KindDouble, 0.5), `0.5`},
		{values.NewPrimitive(types.KindDouble, math.Inf(1)), `"INF"`},
		{values.NewPrimitive(types.KindSingle, float32(math.NaN())), `"NaN"`},
		{values.NewPrimitive(types.KindGuid, id), `"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`},
		{values.NewPrimitive(types.KindString, `say "hi"`), `"say \"hi\""`},
		{values.NewPrimitive(types.KindDate, types.Date{Year: 2024, Month: time.February, Day: 29}), `"2024-02-29"`},
		{values.NewNull(nil), `null`},
	}

	for _, tc := range cases {
		b, err := Marshal(tc.value)
		is.NoErr(err)
		is.Equal(string(b), tc.expected)
	}
}

func TestMarshalCollection(t *testing.T) {
	is := is.New(t)

	c := values.NewCollection(
		values.NewPrimitiveTypeReference(types.KindInt32, true),
		values.NewPrimitive(types.KindInt32, int32(1)),
		values.NewNull(values.NewPrimitiveTypeReference(types.KindInt32, true)),
	)

	b, err := Marshal(c)
	is.NoErr(err)
	is.Equal(string(b), `[1,null]`)

	b, err = MarshalIndent(c, "", " ")
	is.NoErr(err)
	is.Equal(string(b), "[\n 1,\n null\n]")
}

func TestThatMismatchedPayloadsFail(t *testing.T) {
	is := is.New(t)

	_, err := Marshal(values.NewPrimitive(types.KindInt32, "seven"))
	is.True(errors.Is(err, odataerrors.ErrConversion)) // should refuse a payload of the wrong type
}
