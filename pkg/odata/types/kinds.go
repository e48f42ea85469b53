package types

import (
	"fmt"
	"strings"
)

// PrimitiveTypeKind enumerates the EDM primitive types
type PrimitiveTypeKind int

const (
	KindNone PrimitiveTypeKind = iota
	KindBinary
	KindBoolean
	KindByte
	KindDateTimeOffset
	KindDecimal
	KindDouble
	KindGuid
	KindInt16
	KindInt32
	KindInt64
	KindSByte
	KindSingle
	KindString
	KindStream
	KindDuration
	KindDate
	KindTimeOfDay
	KindGeography
	KindGeographyPoint
	KindGeographyLineString
	KindGeographyPolygon
	KindGeographyMultiPolygon
	KindGeometry
	KindGeometryPoint
	KindGeometryLineString
	KindGeometryPolygon
	KindGeometryMultiPolygon
	KindPrimitiveType
)

var kindNames = [...]string{
	KindNone:                  "None",
	KindBinary:                "Binary",
	KindBoolean:               "Boolean",
	KindByte:                  "Byte",
	KindDateTimeOffset:        "DateTimeOffset",
	KindDecimal:               "Decimal",
	KindDouble:                "Double",
	KindGuid:                  "Guid",
	KindInt16:                 "Int16",
	KindInt32:                 "Int32",
	KindInt64:                 "Int64",
	KindSByte:                 "SByte",
	KindSingle:                "Single",
	KindString:                "String",
	KindStream:                "Stream",
	KindDuration:              "Duration",
	KindDate:                  "Date",
	KindTimeOfDay:             "TimeOfDay",
	KindGeography:             "Geography",
	KindGeographyPoint:        "GeographyPoint",
	KindGeographyLineString:   "GeographyLineString",
	KindGeographyPolygon:      "GeographyPolygon",
	KindGeographyMultiPolygon: "GeographyMultiPolygon",
	KindGeometry:              "Geometry",
	KindGeometryPoint:         "GeometryPoint",
	KindGeometryLineString:    "GeometryLineString",
	KindGeometryPolygon:       "GeometryPolygon",
	KindGeometryMultiPolygon:  "GeometryMultiPolygon",
	KindPrimitiveType:         "PrimitiveType",
}

// AllKinds returns every member of the enumeration, KindNone included
func AllKinds() []PrimitiveTypeKind {
	kinds := make([]PrimitiveTypeKind, 0, len(kindNames))
	for k := KindNone; k <= KindPrimitiveType; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k PrimitiveTypeKind) String() string {
	if k < KindNone || k > KindPrimitiveType {
		return fmt.Sprintf("PrimitiveTypeKind(%d)", int(k))
	}
	return kindNames[k]
}

// EdmName returns the qualified name of the kind, i.e. Edm.Int32
func (k PrimitiveTypeKind) EdmName() string {
	return "Edm." + k.String()
}

func (k PrimitiveTypeKind) IsGeography() bool {
	return k >= KindGeography && k <= KindGeographyMultiPolygon
}

func (k PrimitiveTypeKind) IsGeometry() bool {
	return k >= KindGeometry && k <= KindGeometryMultiPolygon
}

func (k PrimitiveTypeKind) IsSpatial() bool {
	return k.IsGeography() || k.IsGeometry()
}

func (k PrimitiveTypeKind) IsIntegral() bool {
	switch k {
	case KindByte, KindSByte, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

func (k PrimitiveTypeKind) IsNumeric() bool {
	return k.IsIntegral() || k == KindSingle || k == KindDouble || k == KindDecimal
}

// ParseKind accepts both short (Int32) and qualified (Edm.Int32) kind names
func ParseKind(name string) (PrimitiveTypeKind, error) {
	short := strings.TrimPrefix(name, "Edm.")
	for k, n := range kindNames {
		if n == short {
			return PrimitiveTypeKind(k), nil
		}
	}
	return KindNone, fmt.Errorf("unknown primitive type %q", name)
}
