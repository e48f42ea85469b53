// Package convert maps native Go values to typed EDM values and back.
//
// Every primitive kind except the excluded set (None, Stream, PrimitiveType and the
// spatial families) has an entry in the kind table. Conversions between kinds are
// lossless only: a payload is rendered to its canonical text form and parsed as the
// requested kind, and any overflow, truncation or parse failure is reported as a
// *errors.ConversionError.
//
// Round trips through ToTypedValue and ToNativeValue return the input unchanged, except
// for unsigned integers, which travel as String, and Go int, which comes back as int64.
package convert

import (
	"bytes"
	"encoding"
	"encoding/json"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/spatial"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/diwise/odata-values/pkg/odata/types/values"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsExcluded reports whether kind is deliberately left without a conversion path
func IsExcluded(kind types.PrimitiveTypeKind) bool {
	switch kind {
	case types.KindNone, types.KindStream, types.KindPrimitiveType:
		return true
	}
	return kind.IsSpatial()
}

// SupportedKinds returns the kinds that have a conversion path, in enumeration order
func SupportedKinds() []types.PrimitiveTypeKind {
	kinds := make([]types.PrimitiveTypeKind, 0, len(kindTable))
	for k := range kindTable {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// ToTypedValue converts native into a typed value. With expected set to KindNone the kind
// is inferred from the shape of native, otherwise the value is coerced to expected.
// Nil input, including nil pointers, yields a null value typed with expected.
func ToTypedValue(native any, expected types.PrimitiveTypeKind) (types.Value, error) {
	if expected != types.KindNone && !expected.IsSpatial() {
		if _, ok := kindTable[expected]; !ok {
			return nil, errors.NewConversionError(expected, native, "kind has no conversion path")
		}
	}

	if native == nil {
		return values.NewNull(nullType(expected)), nil
	}

	kind, payload, err := natural(native, expected)
	if err != nil {
		return nil, err
	}

	if kind == types.KindNone {
		return values.NewNull(nullType(expected)), nil
	}

	if expected == types.KindNone || expected == kind {
		return values.NewPrimitive(kind, payload), nil
	}

	if kind.IsSpatial() || expected.IsSpatial() {
		if kind.IsSpatial() && isFamilyRoot(expected, kind) {
			return values.NewPrimitive(kind, payload), nil
		}
		return nil, errors.NewConversionError(expected, native, "spatial values only convert within their own family")
	}

	coerced, err := coerce(kind, payload, expected)
	if err != nil {
		return nil, errors.WrapConversionError(expected, native, err)
	}

	return values.NewPrimitive(expected, coerced), nil
}

// ToNativeValue returns the payload of a primitive value. Structured, collection and
// null values have no native form.
func ToNativeValue(v types.Value) (any, error) {
	if v == nil {
		return nil, errors.NewValueKindError(types.ValueKindNone, v)
	}

	p, ok := v.(types.PrimitiveValue)
	if !ok || v.ValueKind() != types.ValueKindPrimitive {
		return nil, errors.NewValueKindError(v.ValueKind(), v)
	}

	kind := p.PrimitiveKind()
	payload := p.Payload()

	if kind.IsSpatial() {
		if _, ok := payload.(spatial.Geometry); !ok {
			return nil, errors.NewConversionError(kind, payload, "payload is not a geometry")
		}
		return payload, nil
	}

	path, ok := kindTable[kind]
	if !ok {
		return nil, errors.NewConversionError(kind, payload, "kind has no conversion path")
	}

	if reflect.TypeOf(payload) != path.native {
		return nil, errors.NewConversionError(kind, payload, "payload does not match kind")
	}

	return payload, nil
}

// NativeAs is ToNativeValue followed by a checked type assertion
func NativeAs[T any](v types.Value) (T, error) {
	var zero T

	native, err := ToNativeValue(v)
	if err != nil {
		return zero, err
	}

	t, ok := native.(T)
	if !ok {
		kind := types.KindNone
		if p, isPrimitive := v.(types.PrimitiveValue); isPrimitive {
			kind = p.PrimitiveKind()
		}
		return zero, errors.NewConversionError(kind, native, "unexpected native type")
	}

	return t, nil
}

// Canonical returns the canonical text form of a primitive value
func Canonical(v types.Value) (string, error) {
	native, err := ToNativeValue(v)
	if err != nil {
		return "", err
	}

	kind := v.(types.PrimitiveValue).PrimitiveKind()

	path, ok := kindTable[kind]
	if !ok {
		return "", errors.NewConversionError(kind, native, "kind has no text form")
	}

	text, err := path.format(native)
	if err != nil {
		return "", errors.WrapConversionError(kind, native, err)
	}

	return text, nil
}

func nullType(expected types.PrimitiveTypeKind) types.TypeReference {
	if expected == types.KindNone {
		return nil
	}
	return values.NewPrimitiveTypeReference(expected, true)
}

func isFamilyRoot(root, kind types.PrimitiveTypeKind) bool {
	return (root == types.KindGeography && kind.IsGeography()) ||
		(root == types.KindGeometry && kind.IsGeometry())
}

// coerce renders payload as text and parses it as the target kind
func coerce(from types.PrimitiveTypeKind, payload any, to types.PrimitiveTypeKind) (any, error) {
	source := kindTable[from]
	target := kindTable[to]

	text, err := source.format(payload)
	if err != nil {
		return nil, err
	}

	result, err := target.parse(text)
	if err != nil {
		return nil, err
	}

	if from.IsNumeric() && (to == types.KindSingle || to == types.KindDouble) {
		if err := ensureExact(text, result, target); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// ensureExact rejects float results that do not represent the source number exactly
func ensureExact(text string, result any, target kindPath) error {
	rendered, err := target.format(result)
	if err != nil {
		return err
	}

	want, errWant := decimal.NewFromString(text)
	got, errGot := decimal.NewFromString(rendered)
	if errWant != nil || errGot != nil {
		if text != rendered {
			return &lossError{from: text, to: rendered}
		}
		return nil
	}

	if !want.Equal(got) {
		return &lossError{from: text, to: rendered}
	}

	return nil
}

type lossError struct {
	from, to string
}

func (e *lossError) Error() string {
	return "value " + e.from + " would become " + e.to
}

// natural returns the inferred kind and payload of native. KindNone with a nil error
// signals a nil reference.
func natural(native any, expected types.PrimitiveTypeKind) (types.PrimitiveTypeKind, any, error) {
	switch v := native.(type) {
	case bool:
		return types.KindBoolean, v, nil
	case int8:
		return types.KindSByte, v, nil
	case int16:
		return types.KindInt16, v, nil
	case int32:
		if expected == types.KindString {
			// a rune, when a string is asked for
			return types.KindString, string(rune(v)), nil
		}
		return types.KindInt32, v, nil
	case int:
		return types.KindInt64, int64(v), nil
	case int64:
		return types.KindInt64, v, nil
	case uint8:
		return types.KindByte, v, nil
	case uint16:
		return types.KindString, strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return types.KindString, strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return types.KindString, strconv.FormatUint(v, 10), nil
	case uint:
		return types.KindString, strconv.FormatUint(uint64(v), 10), nil
	case float32:
		return types.KindSingle, v, nil
	case float64:
		return types.KindDouble, v, nil
	case decimal.Decimal:
		return types.KindDecimal, v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return types.KindInt64, i, nil
		}
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return types.KindNone, nil, errors.WrapConversionError(types.KindDecimal, native, err)
		}
		return types.KindDecimal, d, nil
	case uuid.UUID:
		return types.KindGuid, v, nil
	case string:
		return types.KindString, v, nil
	case []rune:
		return types.KindString, string(v), nil
	case []byte:
		return types.KindBinary, bytes.Clone(v), nil
	case time.Time:
		return types.KindDateTimeOffset, v, nil
	case time.Duration:
		return types.KindDuration, v, nil
	case types.Date:
		return types.KindDate, v, nil
	case types.TimeOfDay:
		return types.KindTimeOfDay, v, nil
	case *url.URL:
		if v == nil {
			return types.KindNone, nil, nil
		}
		return types.KindString, v.String(), nil
	case url.URL:
		return types.KindString, v.String(), nil
	case reflect.Type:
		return types.KindString, QualifiedName(v), nil
	case *etree.Document:
		if v == nil {
			return types.KindNone, nil, nil
		}
		s, err := v.WriteToString()
		if err != nil {
			return types.KindNone, nil, errors.WrapConversionError(types.KindString, native, err)
		}
		return types.KindString, s, nil
	case *etree.Element:
		if v == nil {
			return types.KindNone, nil, nil
		}
		doc := etree.NewDocument()
		doc.SetRoot(v.Copy())
		s, err := doc.WriteToString()
		if err != nil {
			return types.KindNone, nil, errors.WrapConversionError(types.KindString, native, err)
		}
		return types.KindString, s, nil
	case *bytes.Buffer:
		if v == nil {
			return types.KindNone, nil, nil
		}
		return types.KindBinary, bytes.Clone(v.Bytes()), nil
	case spatial.Point:
		return natural(&v, expected)
	case spatial.LineString:
		return natural(&v, expected)
	case spatial.Polygon:
		return natural(&v, expected)
	case spatial.MultiPolygon:
		return natural(&v, expected)
	case spatial.Geometry:
		if reflect.ValueOf(v).IsNil() {
			return types.KindNone, nil, nil
		}
		return spatialKind(v, expected), v, nil
	case encoding.BinaryMarshaler:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return types.KindNone, nil, nil
			}
			if _, primitive := staticKinds[rv.Type().Elem()]; primitive {
				// e.g. *time.Time, which marshals to binary through its value methods
				return natural(rv.Elem().Interface(), expected)
			}
		}
		b, err := v.MarshalBinary()
		if err != nil {
			return types.KindNone, nil, errors.WrapConversionError(types.KindBinary, native, err)
		}
		return types.KindBinary, b, nil
	}

	return underlying(native, expected)
}

// underlying handles pointers and named types over the basic kinds, e.g. enums
func underlying(native any, expected types.PrimitiveTypeKind) (types.PrimitiveTypeKind, any, error) {
	rv := reflect.ValueOf(native)

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return types.KindNone, nil, nil
		}
		return natural(rv.Elem().Interface(), expected)
	case reflect.Bool:
		return natural(rv.Bool(), expected)
	case reflect.Int8:
		return natural(int8(rv.Int()), expected)
	case reflect.Int16:
		return natural(int16(rv.Int()), expected)
	case reflect.Int32:
		return natural(int32(rv.Int()), expected)
	case reflect.Int, reflect.Int64:
		return natural(rv.Int(), expected)
	case reflect.Uint8:
		return natural(uint8(rv.Uint()), expected)
	case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return natural(rv.Uint(), expected)
	case reflect.Float32:
		return natural(float32(rv.Float()), expected)
	case reflect.Float64:
		return natural(rv.Float(), expected)
	case reflect.String:
		return natural(rv.String(), expected)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if rv.IsNil() {
				return types.KindNone, nil, nil
			}
			return natural(rv.Bytes(), expected)
		}
	}

	return types.KindNone, nil, errors.NewConversionError(expected, native, "no primitive mapping for this type")
}

func spatialKind(g spatial.Geometry, expected types.PrimitiveTypeKind) types.PrimitiveTypeKind {
	kind := types.KindGeography
	switch g.(type) {
	case *spatial.Point:
		kind = types.KindGeographyPoint
	case *spatial.LineString:
		kind = types.KindGeographyLineString
	case *spatial.Polygon:
		kind = types.KindGeographyPolygon
	case *spatial.MultiPolygon:
		kind = types.KindGeographyMultiPolygon
	default:
		switch g.GeometryType() {
		case "Point":
			kind = types.KindGeographyPoint
		case "LineString":
			kind = types.KindGeographyLineString
		case "Polygon":
			kind = types.KindGeographyPolygon
		case "MultiPolygon":
			kind = types.KindGeographyMultiPolygon
		}
	}

	if expected.IsGeometry() {
		kind += types.KindGeometry - types.KindGeography
	}

	return kind
}

// QualifiedName returns the package qualified name of t, falling back to its string form
// for unnamed types
func QualifiedName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
