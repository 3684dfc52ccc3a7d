package vti

import (
	"encoding/binary"
	"fmt"
	"math"
)

// scalarType describes one VTK array element type
type scalarType struct {
	name   string
	size   int
	decode func(b []byte, order binary.ByteOrder) float64
	encode func(b []byte, order binary.ByteOrder, v float64)
}

var scalarTypes = map[string]scalarType{
	"Int8": {"Int8", 1,
		func(b []byte, _ binary.ByteOrder) float64 { return float64(int8(b[0])) },
		func(b []byte, _ binary.ByteOrder, v float64) { b[0] = byte(int8(clampRound(v, math.MinInt8, math.MaxInt8))) }},
	"UInt8": {"UInt8", 1,
		func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) },
		func(b []byte, _ binary.ByteOrder, v float64) { b[0] = uint8(clampRound(v, 0, math.MaxUint8)) }},
	"Int16": {"Int16", 2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) },
		func(b []byte, o binary.ByteOrder, v float64) {
			o.PutUint16(b, uint16(int16(clampRound(v, math.MinInt16, math.MaxInt16))))
		}},
	"UInt16": {"UInt16", 2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(clampRound(v, 0, math.MaxUint16))) }},
	"Int32": {"Int32", 4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) {
			o.PutUint32(b, uint32(int32(clampRound(v, math.MinInt32, math.MaxInt32))))
		}},
	"UInt32": {"UInt32", 4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(clampRound(v, 0, math.MaxUint32))) }},
	"Int64": {"Int64", 8,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int64(o.Uint64(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, uint64(int64(math.Round(v)))) }},
	"UInt64": {"UInt64", 8,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, uint64(math.Max(0, math.Round(v)))) }},
	"Float32": {"Float32", 4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, math.Float32bits(float32(v))) }},
	"Float64": {"Float64", 8,
		func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, math.Float64bits(v)) }},
}

// Legacy type names written by old VTK versions
var typeAliases = map[string]string{
	"Char":          "Int8",
	"UnsignedChar":  "UInt8",
	"Short":         "Int16",
	"UnsignedShort": "UInt16",
	"Int":           "Int32",
	"UnsignedInt":   "UInt32",
	"Float":         "Float32",
	"Double":        "Float64",
}

func lookupType(name string) (scalarType, error) {
	if alias, ok := typeAliases[name]; ok {
		name = alias
	}
	st, ok := scalarTypes[name]
	if !ok {
		return scalarType{}, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
	return st, nil
}

func clampRound(v, lo, hi float64) float64 {
	return math.Min(math.Max(math.Round(v), lo), hi)
}
