// Package types implements the tuple-level type system: typed values,
// columns, and schemas, with a pinned binary wire format. Grounded on
// original_source/src/record/{column,schema,types}.cpp.
package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is the closed set of supported column types, modeled as tagged
// variants dispatched by tag rather than runtime inheritance.
type Kind uint32

const (
	KindInt Kind = iota
	KindFloat
	KindChar
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	default:
		return "unknown"
	}
}

// Value is a typed, possibly-null field value.
type Value struct {
	Kind   Kind
	Null   bool
	Int    int32
	Float  float32
	String string // backing bytes for KindChar; may be shorter than the
	// column's declared length, never longer.
}

func NewNull(k Kind) Value           { return Value{Kind: k, Null: true} }
func NewInt(v int32) Value           { return Value{Kind: KindInt, Int: v} }
func NewFloat(v float32) Value       { return Value{Kind: KindFloat, Float: v} }
func NewChar(v string) Value         { return Value{Kind: KindChar, String: v} }

// Equal compares two values for equality by kind and payload; two nulls of
// the same kind are equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Null || other.Null {
		return v.Null == other.Null
	}
	switch v.Kind {
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindChar:
		return v.String == other.String
	default:
		return false
	}
}

// Compare returns -1/0/1 ordering two non-null values of the same kind.
// Used by the B+ tree's KeyManager for composite key comparison.
func (v Value) Compare(other Value) int {
	switch v.Kind {
	case KindInt:
		switch {
		case v.Int < other.Int:
			return -1
		case v.Int > other.Int:
			return 1
		default:
			return 0
		}
	case KindFloat:
		switch {
		case v.Float < other.Float:
			return -1
		case v.Float > other.Float:
			return 1
		default:
			return 0
		}
	case KindChar:
		switch {
		case v.String < other.String:
			return -1
		case v.String > other.String:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// SerializedSize returns the number of bytes this value contributes to a
// row's serialized form. A null field contributes zero bytes.
func (v Value) SerializedSize(col *Column) int {
	if v.Null {
		return 0
	}
	switch v.Kind {
	case KindInt:
		return 4
	case KindFloat:
		return 4
	case KindChar:
		return 4 + len(v.String) // length:uint32 | bytes
	default:
		return 0
	}
}

// SerializeTo writes the non-null value's bytes to buf, returning the
// number of bytes written.
func (v Value) SerializeTo(buf []byte) int {
	if v.Null {
		return 0
	}
	switch v.Kind {
	case KindInt:
		binary.LittleEndian.PutUint32(buf, uint32(v.Int))
		return 4
	case KindFloat:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.Float))
		return 4
	case KindChar:
		binary.LittleEndian.PutUint32(buf, uint32(len(v.String)))
		copy(buf[4:], v.String)
		return 4 + len(v.String)
	default:
		return 0
	}
}

// DeserializeValue reads one field's bytes from buf for the given kind; if
// isNull is true no bytes are consumed.
func DeserializeValue(buf []byte, k Kind, isNull bool) (Value, int, error) {
	if isNull {
		return NewNull(k), 0, nil
	}

	switch k {
	case KindInt:
		if len(buf) < 4 {
			return Value{}, 0, fmt.Errorf("types: truncated int field")
		}
		return NewInt(int32(binary.LittleEndian.Uint32(buf))), 4, nil
	case KindFloat:
		if len(buf) < 4 {
			return Value{}, 0, fmt.Errorf("types: truncated float field")
		}
		return NewFloat(math.Float32frombits(binary.LittleEndian.Uint32(buf))), 4, nil
	case KindChar:
		if len(buf) < 4 {
			return Value{}, 0, fmt.Errorf("types: truncated char length")
		}
		n := binary.LittleEndian.Uint32(buf)
		if len(buf) < int(4+n) {
			return Value{}, 0, fmt.Errorf("types: truncated char payload")
		}
		s := string(buf[4 : 4+n])
		return NewChar(s), int(4 + n), nil
	default:
		return Value{}, 0, fmt.Errorf("types: unknown kind %d", k)
	}
}
