package convert

import (
	"bytes"
	"encoding"
	"encoding/json"
	"net/url"
	"reflect"
	"time"

	"github.com/beevik/etree"
	"github.com/diwise/odata-values/pkg/odata/spatial"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var staticKinds = map[reflect.Type]types.PrimitiveTypeKind{
	reflect.TypeFor[[]byte]():          types.KindBinary,
	reflect.TypeFor[*bytes.Buffer]():   types.KindBinary,
	reflect.TypeFor[[]rune]():          types.KindString,
	reflect.TypeFor[time.Time]():       types.KindDateTimeOffset,
	reflect.TypeFor[time.Duration]():   types.KindDuration,
	reflect.TypeFor[types.Date]():      types.KindDate,
	reflect.TypeFor[types.TimeOfDay](): types.KindTimeOfDay,
	reflect.TypeFor[decimal.Decimal](): types.KindDecimal,
	reflect.TypeFor[json.Number]():     types.KindDecimal,
	reflect.TypeFor[uuid.UUID]():       types.KindGuid,
	reflect.TypeFor[*url.URL]():        types.KindString,
	reflect.TypeFor[url.URL]():         types.KindString,
	reflect.TypeFor[reflect.Type]():    types.KindString,
	reflect.TypeFor[*etree.Document](): types.KindString,
	reflect.TypeFor[*etree.Element]():  types.KindString,

	reflect.TypeFor[*spatial.Point]():        types.KindGeographyPoint,
	reflect.TypeFor[*spatial.LineString]():   types.KindGeographyLineString,
	reflect.TypeFor[*spatial.Polygon]():      types.KindGeographyPolygon,
	reflect.TypeFor[*spatial.MultiPolygon](): types.KindGeographyMultiPolygon,
	reflect.TypeFor[spatial.Point]():         types.KindGeographyPoint,
	reflect.TypeFor[spatial.LineString]():    types.KindGeographyLineString,
	reflect.TypeFor[spatial.Polygon]():       types.KindGeographyPolygon,
	reflect.TypeFor[spatial.MultiPolygon]():  types.KindGeographyMultiPolygon,
	reflect.TypeFor[spatial.Geometry]():      types.KindGeography,
}

var binaryMarshalerType = reflect.TypeFor[encoding.BinaryMarshaler]()

// KindOf returns the primitive kind that values of type t convert to when no kind is
// requested. The boolean is false for types without a primitive mapping, such as structs,
// maps and slices of anything but bytes.
func KindOf(t reflect.Type) (types.PrimitiveTypeKind, bool) {
	if k, ok := staticKinds[t]; ok {
		return k, true
	}

	if t.Kind() == reflect.Pointer {
		if k, ok := staticKinds[t.Elem()]; ok {
			return k, true
		}
		if t.Implements(binaryMarshalerType) {
			return types.KindBinary, true
		}
		return KindOf(t.Elem())
	}

	switch t.Kind() {
	case reflect.Bool:
		return types.KindBoolean, true
	case reflect.Int8:
		return types.KindSByte, true
	case reflect.Int16:
		return types.KindInt16, true
	case reflect.Int32:
		return types.KindInt32, true
	case reflect.Int, reflect.Int64:
		return types.KindInt64, true
	case reflect.Uint8:
		return types.KindByte, true
	case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		// no unsigned primitive types exist, these travel as decimal strings
		return types.KindString, true
	case reflect.Float32:
		return types.KindSingle, true
	case reflect.Float64:
		return types.KindDouble, true
	case reflect.String:
		return types.KindString, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return types.KindBinary, true
		}
	}

	if t.Implements(binaryMarshalerType) {
		return types.KindBinary, true
	}

	return types.KindNone, false
}
