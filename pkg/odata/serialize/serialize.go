// Package serialize renders EDM values as OData JSON
package serialize

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"github.com/diwise/odata-values/pkg/odata/convert"
	"github.com/diwise/odata-values/pkg/odata/errors"
	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/shopspring/decimal"
)

const TypeAnnotation string = "@odata.type"

// Marshal renders v as JSON. Structured values become objects annotated with their
// qualified type name and carrying their serializable properties in declaration order,
// collections become arrays and primitives use their OData JSON representation.
func Marshal(v types.Value) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := write(buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent is Marshal with indentation applied like json.MarshalIndent
func MarshalIndent(v types.Value, prefix, indent string) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	out := &bytes.Buffer{}
	if err := json.Indent(out, b, prefix, indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func write(buf *bytes.Buffer, v types.Value) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch v.ValueKind() {
	case types.ValueKindNull:
		buf.WriteString("null")
		return nil
	case types.ValueKindPrimitive:
		p, ok := v.(types.PrimitiveValue)
		if !ok {
			return errors.NewValueKindError(v.ValueKind(), v)
		}
		return writePrimitive(buf, p)
	case types.ValueKindStructured:
		s, ok := v.(types.StructuredValue)
		if !ok {
			return errors.NewValueKindError(v.ValueKind(), v)
		}
		return writeStructured(buf, s)
	case types.ValueKindCollection:
		c, ok := v.(types.CollectionValue)
		if !ok {
			return errors.NewValueKindError(v.ValueKind(), v)
		}
		return writeCollection(buf, c)
	}

	return errors.NewValueKindError(v.ValueKind(), v)
}

func writeStructured(buf *bytes.Buffer, s types.StructuredValue) error {
	buf.WriteByte('{')

	writeString(buf, TypeAnnotation)
	buf.WriteByte(':')
	writeString(buf, "#"+s.Type().FullName())

	for pv, err := range s.PropertyValues() {
		if err != nil {
			return err
		}

		buf.WriteByte(',')
		writeString(buf, pv.Name())
		buf.WriteByte(':')

		if err := write(buf, pv.Value()); err != nil {
			return fmt.Errorf("failed to write property %s: %w", pv.Name(), err)
		}
	}

	buf.WriteByte('}')
	return nil
}

func writeCollection(buf *bytes.Buffer, c types.CollectionValue) error {
	buf.WriteByte('[')

	first := true
	for elem, err := range c.Elements() {
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		if err := write(buf, elem); err != nil {
			return err
		}
	}

	buf.WriteByte(']')
	return nil
}

func writePrimitive(buf *bytes.Buffer, p types.PrimitiveValue) error {
	native, err := convert.ToNativeValue(p)
	if err != nil {
		return err
	}

	kind := p.PrimitiveKind()

	if kind.IsSpatial() {
		return writeJSON(buf, native)
	}

	switch n := native.(type) {
	case bool, uint8, int8, int16, int32, int64:
		return writeJSON(buf, n)
	case float32:
		return writeFloat(buf, p, float64(n))
	case float64:
		return writeFloat(buf, p, n)
	case decimal.Decimal:
		buf.WriteString(n.String())
		return nil
	case []byte:
		writeString(buf, base64.URLEncoding.EncodeToString(n))
		return nil
	}

	text, err := convert.Canonical(p)
	if err != nil {
		return err
	}

	writeString(buf, text)
	return nil
}

// writeFloat writes finite numbers as JSON numbers and the special values as strings
func writeFloat(buf *bytes.Buffer, p types.PrimitiveValue, f float64) error {
	text, err := convert.Canonical(p)
	if err != nil {
		return err
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		writeString(buf, text)
	} else {
		buf.WriteString(text)
	}

	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
