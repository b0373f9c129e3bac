package table

import (
	"fmt"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"colmerge/dict"
)

// debugAsserts gates the consistency checks on the unchecked
// physical-to-logical relabel. Off in normal builds; the public entry
// points validate lengths and kinds once up front.
const debugAsserts = false

// Column is a named, homogeneously typed sequence of values. The backing
// for Data depends on the kind:
//
//	KindBool                     []bool
//	KindInt8 .. KindFloat64      []int8 .. []float64
//	KindString, KindBinary       [][]byte
//	KindCategorical              []uint32 codes into Type.Dict
//	KindList                     ListData
//	KindStruct                   []*Column, one per field
//
// Validity marks null rows (set bit = null); nil means no nulls. Columns
// handed to merge operations are treated as immutable; merged columns are
// freshly allocated.
type Column struct {
	Name     string
	Type     DataType
	Data     interface{}
	Validity *roaring.Bitmap
	Length   int
}

// ListData is the backing of a list column: Offsets has Length+1 entries
// and row i covers Child rows [Offsets[i], Offsets[i+1]).
type ListData struct {
	Offsets []int64
	Child   *Column
}

// Numeric constrains the fixed-width numeric value types
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NewBoolColumn creates a boolean column
func NewBoolColumn(name string, values []bool) *Column {
	return &Column{Name: name, Type: Primitive(KindBool), Data: values, Length: len(values)}
}

// NewNumericColumn creates a fixed-width numeric column; the kind is
// derived from the element type.
func NewNumericColumn[T Numeric](name string, values []T) *Column {
	return &Column{Name: name, Type: Primitive(numericKind[T]()), Data: values, Length: len(values)}
}

// NewStringColumn creates a UTF-8 text column. Text is stored as raw bytes
// so the physical conversion to binary is a relabel, not a copy.
func NewStringColumn(name string, values []string) *Column {
	data := make([][]byte, len(values))
	for i, v := range values {
		data[i] = []byte(v)
	}
	return &Column{Name: name, Type: Primitive(KindString), Data: data, Length: len(values)}
}

// NewBinaryColumn creates a raw binary column
func NewBinaryColumn(name string, values [][]byte) *Column {
	return &Column{Name: name, Type: Primitive(KindBinary), Data: values, Length: len(values)}
}

// NewCategoricalColumn creates a categorical column from codes and the
// dictionary that decodes them.
func NewCategoricalColumn(name string, codes []uint32, d *dict.Dictionary, lexical bool) *Column {
	return &Column{
		Name:   name,
		Type:   Categorical(d, lexical),
		Data:   codes,
		Length: len(codes),
	}
}

// NewListColumn creates a list column. Offsets must have len(offsets) =
// rows+1 with offsets[rows] equal to the child length.
func NewListColumn(name string, offsets []int64, child *Column) (*Column, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("list column %q: offsets must have at least one entry", name)
	}
	if offsets[len(offsets)-1] != int64(child.Length) {
		return nil, fmt.Errorf("list column %q: %w: final offset %d, child length %d",
			name, ErrLengthMismatch, offsets[len(offsets)-1], child.Length)
	}
	elem := child.Type
	return &Column{
		Name:   name,
		Type:   ListOf(elem),
		Data:   ListData{Offsets: offsets, Child: child},
		Length: len(offsets) - 1,
	}, nil
}

// NewStructColumn creates a struct column from field columns, which must
// all share one length.
func NewStructColumn(name string, fields []*Column) (*Column, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("struct column %q: needs at least one field", name)
	}
	length := fields[0].Length
	fieldTypes := make([]Field, len(fields))
	for i, f := range fields {
		if f.Length != length {
			return nil, fmt.Errorf("struct column %q: %w: field %q has %d rows, expected %d",
				name, ErrLengthMismatch, f.Name, f.Length, length)
		}
		fieldTypes[i] = Field{Name: f.Name, Type: f.Type}
	}
	return &Column{
		Name:   name,
		Type:   StructOf(fieldTypes...),
		Data:   fields,
		Length: length,
	}, nil
}

// Rename sets the column name and returns the column
func (c *Column) Rename(name string) *Column {
	c.Name = name
	return c
}

// MarkNull marks rows as null and returns the column. Intended for column
// construction; merged columns are never mutated.
func (c *Column) MarkNull(rows ...int) *Column {
	if c.Validity == nil {
		c.Validity = roaring.New()
	}
	for _, r := range rows {
		c.Validity.Add(uint32(r))
	}
	return c
}

// IsNull reports whether row i is null
func (c *Column) IsNull(i int) bool {
	return c.Validity != nil && c.Validity.Contains(uint32(i))
}

// NullCount returns the number of null rows
func (c *Column) NullCount() int {
	if c.Validity == nil {
		return 0
	}
	return int(c.Validity.GetCardinality())
}

// StringAt returns the text value of row i of a string column
func (c *Column) StringAt(i int) string {
	return string(c.Data.([][]byte)[i])
}

// Codes returns the physical codes of a categorical column
func (c *Column) Codes() []uint32 {
	return c.Data.([]uint32)
}

// List returns the backing of a list column
func (c *Column) List() ListData {
	return c.Data.(ListData)
}

// StructFields returns the field columns of a struct column
func (c *Column) StructFields() []*Column {
	return c.Data.([]*Column)
}

// ToPhysical converts the column to its physical representation:
// categorical columns become their uint32 codes, text becomes binary, and
// nested columns convert their children. The conversion shares backing
// storage; it never copies values.
func (c *Column) ToPhysical() *Column {
	switch c.Type.Kind {
	case KindCategorical:
		return &Column{Name: c.Name, Type: Primitive(KindUint32), Data: c.Data, Validity: c.Validity, Length: c.Length}
	case KindString:
		return &Column{Name: c.Name, Type: Primitive(KindBinary), Data: c.Data, Validity: c.Validity, Length: c.Length}
	case KindList:
		ld := c.List()
		return &Column{
			Name:     c.Name,
			Type:     c.Type.Physical(),
			Data:     ListData{Offsets: ld.Offsets, Child: ld.Child.ToPhysical()},
			Validity: c.Validity,
			Length:   c.Length,
		}
	case KindStruct:
		fields := c.StructFields()
		phys := make([]*Column, len(fields))
		for i, f := range fields {
			phys[i] = f.ToPhysical()
		}
		return &Column{Name: c.Name, Type: c.Type.Physical(), Data: phys, Validity: c.Validity, Length: c.Length}
	default:
		return c
	}
}

// FromPhysicalUnchecked relabels a physical column back to the logical
// data type dt without validating values. The caller must have verified
// that c is the physical representation of dt; the merge entry point does
// this once per column, not per element.
func (c *Column) FromPhysicalUnchecked(dt DataType) *Column {
	if debugAsserts {
		if phys := dt.Physical(); phys.Kind != c.Type.Kind {
			panic(fmt.Sprintf("table: relabel %s onto physical %s", dt, c.Type))
		}
	}
	out := &Column{Name: c.Name, Type: dt, Data: c.Data, Validity: c.Validity, Length: c.Length}
	switch dt.Kind {
	case KindList:
		ld := c.List()
		out.Data = ListData{Offsets: ld.Offsets, Child: ld.Child.FromPhysicalUnchecked(*dt.Elem)}
	case KindStruct:
		fields := c.StructFields()
		logical := make([]*Column, len(fields))
		for i, f := range fields {
			logical[i] = f.FromPhysicalUnchecked(dt.Fields[i].Type)
		}
		out.Data = logical
	}
	return out
}

func numericKind[T Numeric]() Kind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return KindInt8
	case int16:
		return KindInt16
	case int32:
		return KindInt32
	case int64:
		return KindInt64
	case uint8:
		return KindUint8
	case uint16:
		return KindUint16
	case uint32:
		return KindUint32
	case uint64:
		return KindUint64
	case float32:
		return KindFloat32
	default:
		return KindFloat64
	}
}
