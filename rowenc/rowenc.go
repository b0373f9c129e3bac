// Package rowenc serializes composite (struct) keys into order-preserving
// byte strings, so structured keys can reuse the scalar byte comparison
// path of the merge indicator: for any two rows, bytes.Compare on their
// encodings agrees with field-lexicographic comparison of the row values.
package rowenc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"colmerge/table"
)

// Errors
var (
	ErrUnsupportedKeyKind = errors.New("unsupported key kind for row encoding")
)

const (
	markerNull  = 0x00
	markerValue = 0x01

	// Variable-length values escape 0x00 as 0x00 0xFF and close with
	// 0x00 0x01, keeping encodings prefix-free and order-preserving.
	bytesEscape     = 0x00
	bytesEscapedFF  = 0xFF
	bytesTerminator = 0x01
)

// EncodeRows encodes every row of a struct column into one byte string per
// row. Field values are encoded in field order, each prefixed with a
// null/value marker so a null field sorts before every value. An
// outer-level null row encodes as a single null marker. List fields are
// not encodable.
func EncodeRows(col *table.Column) ([][]byte, error) {
	if col.Type.Kind != table.KindStruct {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyKind, col.Type)
	}
	out := make([][]byte, col.Length)
	for row := 0; row < col.Length; row++ {
		buf, err := encodeRow(nil, col, row)
		if err != nil {
			return nil, err
		}
		out[row] = buf
	}
	return out, nil
}

func encodeRow(buf []byte, col *table.Column, row int) ([]byte, error) {
	if col.IsNull(row) {
		return append(buf, markerNull), nil
	}
	buf = append(buf, markerValue)
	var err error
	for _, f := range col.StructFields() {
		buf, err = encodeField(buf, f, row)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeField(buf []byte, col *table.Column, row int) ([]byte, error) {
	if col.Type.Kind == table.KindStruct {
		return encodeRow(buf, col, row)
	}
	if col.IsNull(row) {
		return append(buf, markerNull), nil
	}
	buf = append(buf, markerValue)

	switch col.Type.Kind {
	case table.KindBool:
		if col.Data.([]bool)[row] {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case table.KindInt8:
		return appendInt(buf, int64(col.Data.([]int8)[row])), nil
	case table.KindInt16:
		return appendInt(buf, int64(col.Data.([]int16)[row])), nil
	case table.KindInt32:
		return appendInt(buf, int64(col.Data.([]int32)[row])), nil
	case table.KindInt64:
		return appendInt(buf, col.Data.([]int64)[row]), nil
	case table.KindUint8:
		return appendUint(buf, uint64(col.Data.([]uint8)[row])), nil
	case table.KindUint16:
		return appendUint(buf, uint64(col.Data.([]uint16)[row])), nil
	case table.KindUint32:
		return appendUint(buf, uint64(col.Data.([]uint32)[row])), nil
	case table.KindUint64:
		return appendUint(buf, col.Data.([]uint64)[row]), nil
	case table.KindFloat32:
		return appendFloat(buf, float64(col.Data.([]float32)[row])), nil
	case table.KindFloat64:
		return appendFloat(buf, col.Data.([]float64)[row]), nil
	case table.KindString, table.KindBinary:
		return appendBytes(buf, col.Data.([][]byte)[row]), nil
	case table.KindCategorical:
		// Encode the decoded string: codes from differing dictionaries
		// are not comparable, strings always are.
		v, err := col.Type.Dict.Value(col.Codes()[row])
		if err != nil {
			return nil, err
		}
		return appendBytes(buf, []byte(v)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyKind, col.Type)
	}
}

// appendInt flips the sign bit so big-endian byte order matches signed
// integer order.
func appendInt(buf []byte, v int64) []byte {
	return appendUint(buf, uint64(v)^(1<<63))
}

func appendUint(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// appendFloat applies the IEEE-754 total-order transform: negative values
// invert all bits, non-negative values set the sign bit.
func appendFloat(buf []byte, v float64) []byte {
	bits := math.Float64bits(v)
	if bits>>63 != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return appendUint(buf, bits)
}

func appendBytes(buf []byte, v []byte) []byte {
	for _, b := range v {
		if b == bytesEscape {
			buf = append(buf, bytesEscape, bytesEscapedFF)
		} else {
			buf = append(buf, b)
		}
	}
	return append(buf, bytesEscape, bytesTerminator)
}
