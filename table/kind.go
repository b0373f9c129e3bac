package table

import "errors"

// Errors
var (
	ErrLengthMismatch = errors.New("column lengths do not match")
	ErrKindMismatch   = errors.New("column kinds do not match")
	ErrColumnNotFound = errors.New("column not found")
	ErrDuplicateName  = errors.New("duplicate column name")
)

// Kind identifies the physical or logical category of a column.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBinary
	KindList
	KindStruct

	// KindCategorical is logical only; its physical representation is
	// KindUint32 codes into an attached dictionary.
	KindCategorical
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// IsNumeric returns true if the kind is a fixed-width numeric kind
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat32, KindFloat64:
		return true
	default:
		return false
	}
}

// IsNested returns true if the kind carries child columns
func (k Kind) IsNested() bool {
	return k == KindList || k == KindStruct
}

// Size returns the size in bytes of one value of a fixed-width kind,
// or 0 for variable-width and nested kinds.
func (k Kind) Size() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32, KindCategorical:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}
