package table

import (
	"fmt"
	"strings"

	"colmerge/dict"
)

// DataType is the logical type of a column: a kind plus the parameters
// nested and categorical kinds carry.
type DataType struct {
	Kind Kind

	// Elem is the element type for KindList
	Elem *DataType

	// Fields are the field types for KindStruct
	Fields []Field

	// Dict and Lexical apply to KindCategorical. Dict maps the uint32
	// codes to strings; Lexical selects alphabetical ordering semantics
	// instead of code order.
	Dict    *dict.Dictionary
	Lexical bool
}

// Field is a named field type inside a struct data type
type Field struct {
	Name string
	Type DataType
}

// Primitive returns a DataType for a non-nested, non-categorical kind
func Primitive(k Kind) DataType {
	return DataType{Kind: k}
}

// ListOf returns a list DataType with the given element type
func ListOf(elem DataType) DataType {
	return DataType{Kind: KindList, Elem: &elem}
}

// StructOf returns a struct DataType with the given fields
func StructOf(fields ...Field) DataType {
	return DataType{Kind: KindStruct, Fields: fields}
}

// Categorical returns a categorical DataType backed by d
func Categorical(d *dict.Dictionary, lexical bool) DataType {
	return DataType{Kind: KindCategorical, Dict: d, Lexical: lexical}
}

// Equal reports whether two data types are structurally identical.
// Categorical types compare kind and ordering semantics only; dictionary
// compatibility is a separate check because two columns of the same
// categorical type may still carry incompatible dictionaries.
func (dt DataType) Equal(other DataType) bool {
	if dt.Kind != other.Kind {
		return false
	}
	switch dt.Kind {
	case KindList:
		return dt.Elem.Equal(*other.Elem)
	case KindStruct:
		if len(dt.Fields) != len(other.Fields) {
			return false
		}
		for i, f := range dt.Fields {
			if f.Name != other.Fields[i].Name || !f.Type.Equal(other.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindCategorical:
		return dt.Lexical == other.Lexical
	default:
		return true
	}
}

// String returns the string representation of a data type
func (dt DataType) String() string {
	switch dt.Kind {
	case KindList:
		return fmt.Sprintf("list[%s]", dt.Elem)
	case KindStruct:
		parts := make([]string, len(dt.Fields))
		for i, f := range dt.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
		}
		return fmt.Sprintf("struct[%s]", strings.Join(parts, ", "))
	default:
		return dt.Kind.String()
	}
}

// Physical returns the data type of the physical representation: categorical
// becomes uint32 codes, string becomes binary, nested types convert their
// children. Every other type is already physical.
func (dt DataType) Physical() DataType {
	switch dt.Kind {
	case KindCategorical:
		return DataType{Kind: KindUint32}
	case KindString:
		return DataType{Kind: KindBinary}
	case KindList:
		elem := dt.Elem.Physical()
		return DataType{Kind: KindList, Elem: &elem}
	case KindStruct:
		fields := make([]Field, len(dt.Fields))
		for i, f := range dt.Fields {
			fields[i] = Field{Name: f.Name, Type: f.Type.Physical()}
		}
		return DataType{Kind: KindStruct, Fields: fields}
	default:
		return dt
	}
}
