package errors

import (
	"fmt"

	"github.com/diwise/odata-values/pkg/odata/types"
)

var ErrArgument = fmt.Errorf("invalid argument")
var ErrConversion = fmt.Errorf("conversion failed")
var ErrDuplicateKey = fmt.Errorf("duplicate key")
var ErrNotFound = fmt.Errorf("not found")

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewArgumentError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrArgument,
	}
}

func NewDuplicateKeyError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrDuplicateKey,
	}
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrNotFound,
	}
}

// ConversionError is returned when a value can not be mapped to or from a primitive kind
type ConversionError struct {
	Kind      types.PrimitiveTypeKind
	ValueKind types.ValueKind
	GoType    string

	msg   string
	cause error
}

func (ce *ConversionError) Error() string {
	target := ce.Kind.EdmName()
	if ce.Kind == types.KindNone && ce.ValueKind != types.ValueKindNone {
		target = ce.ValueKind.String() + " value"
	}

	msg := fmt.Sprintf("cannot convert %s to %s", ce.GoType, target)
	if ce.msg != "" {
		msg += ": " + ce.msg
	}
	if ce.cause != nil {
		msg += ": " + ce.cause.Error()
	}

	return msg
}

func (ce *ConversionError) Is(target error) bool { return target == ErrConversion }
func (ce *ConversionError) Unwrap() error        { return ce.cause }

func NewConversionError(kind types.PrimitiveTypeKind, value any, msg string) *ConversionError {
	return &ConversionError{
		Kind:      kind,
		ValueKind: types.ValueKindPrimitive,
		GoType:    fmt.Sprintf("%T", value),
		msg:       msg,
	}
}

func WrapConversionError(kind types.PrimitiveTypeKind, value any, cause error) *ConversionError {
	ce := NewConversionError(kind, value, "")
	ce.cause = cause
	return ce
}

// NewValueKindError reports a value that is not primitive and thus has no native form
func NewValueKindError(valueKind types.ValueKind, value any) *ConversionError {
	return &ConversionError{
		Kind:      types.KindNone,
		ValueKind: valueKind,
		GoType:    fmt.Sprintf("%T", value),
		msg:       fmt.Sprintf("%s values have no native representation", valueKind),
	}
}
