package convert

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/diwise/odata-values/pkg/odata/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// kindPath maps a primitive kind to its Go payload type and its canonical text form.
// Narrowing and widening between kinds always goes through format and parse.
type kindPath struct {
	native reflect.Type
	format func(payload any) (string, error)
	parse  func(text string) (any, error)
}

var kindTable = map[types.PrimitiveTypeKind]kindPath{
	types.KindBinary: {
		native: reflect.TypeFor[[]byte](),
		format: textOf(base64.StdEncoding.EncodeToString),
		parse:  parsed(base64.StdEncoding.DecodeString),
	},
	types.KindBoolean: {
		native: reflect.TypeFor[bool](),
		format: textOf(strconv.FormatBool),
		parse:  parsed(parseBool),
	},
	types.KindByte: {
		native: reflect.TypeFor[uint8](),
		format: textOf(func(b uint8) string { return strconv.FormatUint(uint64(b), 10) }),
		parse: parsed(func(s string) (uint8, error) {
			n, err := strconv.ParseUint(s, 10, 8)
			return uint8(n), err
		}),
	},
	types.KindSByte: {
		native: reflect.TypeFor[int8](),
		format: textOf(func(i int8) string { return strconv.FormatInt(int64(i), 10) }),
		parse: parsed(func(s string) (int8, error) {
			n, err := strconv.ParseInt(s, 10, 8)
			return int8(n), err
		}),
	},
	types.KindInt16: {
		native: reflect.TypeFor[int16](),
		format: textOf(func(i int16) string { return strconv.FormatInt(int64(i), 10) }),
		parse: parsed(func(s string) (int16, error) {
			n, err := strconv.ParseInt(s, 10, 16)
			return int16(n), err
		}),
	},
	types.KindInt32: {
		native: reflect.TypeFor[int32](),
		format: textOf(func(i int32) string { return strconv.FormatInt(int64(i), 10) }),
		parse: parsed(func(s string) (int32, error) {
			n, err := strconv.ParseInt(s, 10, 32)
			return int32(n), err
		}),
	},
	types.KindInt64: {
		native: reflect.TypeFor[int64](),
		format: textOf(func(i int64) string { return strconv.FormatInt(i, 10) }),
		parse: parsed(func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		}),
	},
	types.KindSingle: {
		native: reflect.TypeFor[float32](),
		format: textOf(func(f float32) string { return formatFloat(float64(f), 32) }),
		parse: parsed(func(s string) (float32, error) {
			f, err := parseFloat(s, 32)
			return float32(f), err
		}),
	},
	types.KindDouble: {
		native: reflect.TypeFor[float64](),
		format: textOf(func(f float64) string { return formatFloat(f, 64) }),
		parse: parsed(func(s string) (float64, error) {
			return parseFloat(s, 64)
		}),
	},
	types.KindDecimal: {
		native: reflect.TypeFor[decimal.Decimal](),
		format: textOf(decimal.Decimal.String),
		parse:  parsed(decimal.NewFromString),
	},
	types.KindGuid: {
		native: reflect.TypeFor[uuid.UUID](),
		format: textOf(uuid.UUID.String),
		parse:  parsed(uuid.Parse),
	},
	types.KindString: {
		native: reflect.TypeFor[string](),
		format: textOf(func(s string) string { return s }),
		parse:  parsed(func(s string) (string, error) { return s, nil }),
	},
	types.KindDateTimeOffset: {
		native: reflect.TypeFor[time.Time](),
		format: textOf(func(t time.Time) string { return t.Format(time.RFC3339Nano) }),
		parse: parsed(func(s string) (time.Time, error) {
			return time.Parse(time.RFC3339Nano, s)
		}),
	},
	types.KindDuration: {
		native: reflect.TypeFor[time.Duration](),
		format: textOf(types.FormatDuration),
		parse:  parsed(types.ParseDuration),
	},
	types.KindDate: {
		native: reflect.TypeFor[types.Date](),
		format: textOf(types.Date.String),
		parse:  parsed(types.ParseDate),
	},
	types.KindTimeOfDay: {
		native: reflect.TypeFor[types.TimeOfDay](),
		format: textOf(types.TimeOfDay.String),
		parse:  parsed(types.ParseTimeOfDay),
	},
}

func textOf[T any](f func(T) string) func(any) (string, error) {
	return func(payload any) (string, error) {
		v, ok := payload.(T)
		if !ok {
			var zero T
			return "", fmt.Errorf("payload of type %T where %T was expected", payload, zero)
		}
		return f(v), nil
	}
}

func parsed[T any](f func(string) (T, error)) func(string) (any, error) {
	return func(text string) (any, error) {
		v, err := f(text)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'E', -1, bits)
	}

	return strconv.FormatFloat(f, 'f', -1, bits)
}

func parseFloat(s string, bits int) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, bits)
}
