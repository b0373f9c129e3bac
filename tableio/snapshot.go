// Package tableio loads and stores tables: a compact native snapshot
// format with per-column compressed blocks, and Parquet import/export for
// the flat column kinds. The merge core itself never touches storage;
// tableio exists for callers that feed it.
package tableio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	roaring "github.com/RoaringBitmap/roaring/v2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"colmerge/table"
)

// Constants
const (
	SnapshotMagic   = 0x434C4D47 // "CLMG"
	SnapshotVersion = 1
)

// Errors
var (
	ErrInvalidMagicNumber = errors.New("invalid snapshot magic number")
	ErrInvalidVersion     = errors.New("unsupported snapshot version")
	ErrUnsupportedCodec   = errors.New("unsupported compression codec")
	ErrUnsupportedKind    = errors.New("column kind not supported by this format")
)

// ByteOrder is the byte order used for snapshot framing
var ByteOrder = binary.LittleEndian

// Codec selects the compression applied to column data blocks
type Codec uint8

const (
	CodecNone   Codec = 0
	CodecSnappy Codec = 1
	CodecZstd   Codec = 2
)

// WriteSnapshot writes a table to w. Only flat kinds are supported:
// booleans, fixed-width numerics, text, and binary. Nested and categorical
// columns are built in memory by callers, not persisted here.
func WriteSnapshot(w io.Writer, t *table.Table, codec Codec) error {
	header := struct {
		Magic   uint32
		Version uint16
		Codec   uint8
		_       uint8
		Columns uint32
		Rows    uint64
	}{
		Magic:   SnapshotMagic,
		Version: SnapshotVersion,
		Codec:   uint8(codec),
		Columns: uint32(t.NumColumns()),
		Rows:    uint64(t.NumRows()),
	}
	if err := binary.Write(w, ByteOrder, &header); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}

	for _, col := range t.Columns() {
		if err := writeColumn(w, col, codec); err != nil {
			return fmt.Errorf("failed to write column %q: %w", col.Name, err)
		}
	}
	return nil
}

// ReadSnapshot reads a table written by WriteSnapshot
func ReadSnapshot(r io.Reader) (*table.Table, error) {
	var header struct {
		Magic   uint32
		Version uint16
		Codec   uint8
		_       uint8
		Columns uint32
		Rows    uint64
	}
	if err := binary.Read(r, ByteOrder, &header); err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if header.Magic != SnapshotMagic {
		return nil, ErrInvalidMagicNumber
	}
	if header.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, header.Version)
	}

	cols := make([]*table.Column, header.Columns)
	for i := range cols {
		col, err := readColumn(r, Codec(header.Codec), int(header.Rows))
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return table.NewTable(cols...)
}

func writeColumn(w io.Writer, col *table.Column, codec Codec) error {
	raw, err := encodeColumnData(col)
	if err != nil {
		return err
	}
	block, err := compress(raw, codec)
	if err != nil {
		return err
	}

	var validity []byte
	if col.Validity != nil {
		buf := new(bytes.Buffer)
		if _, err := col.Validity.WriteTo(buf); err != nil {
			return fmt.Errorf("failed to serialize validity bitmap: %w", err)
		}
		validity = buf.Bytes()
	}

	if err := binary.Write(w, ByteOrder, uint16(len(col.Name))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(col.Name)); err != nil {
		return err
	}
	if err := binary.Write(w, ByteOrder, uint8(col.Type.Kind)); err != nil {
		return err
	}
	if err := binary.Write(w, ByteOrder, uint32(len(validity))); err != nil {
		return err
	}
	if _, err := w.Write(validity); err != nil {
		return err
	}
	if err := binary.Write(w, ByteOrder, uint32(len(block))); err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

func readColumn(r io.Reader, codec Codec, rows int) (*table.Column, error) {
	var nameLen uint16
	if err := binary.Read(r, ByteOrder, &nameLen); err != nil {
		return nil, fmt.Errorf("failed to read column header: %w", err)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, err
	}
	var kind uint8
	if err := binary.Read(r, ByteOrder, &kind); err != nil {
		return nil, err
	}
	var validityLen uint32
	if err := binary.Read(r, ByteOrder, &validityLen); err != nil {
		return nil, err
	}
	var validity *roaring.Bitmap
	if validityLen > 0 {
		buf := make([]byte, validityLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		validity = roaring.New()
		if _, err := validity.ReadFrom(bytes.NewReader(buf)); err != nil {
			return nil, fmt.Errorf("failed to deserialize validity bitmap: %w", err)
		}
	}
	var blockLen uint32
	if err := binary.Read(r, ByteOrder, &blockLen); err != nil {
		return nil, err
	}
	block := make([]byte, blockLen)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, err
	}
	raw, err := decompress(block, codec)
	if err != nil {
		return nil, err
	}

	col, err := decodeColumnData(table.Kind(kind), raw, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode column %q: %w", name, err)
	}
	col.Name = string(name)
	col.Validity = validity
	return col, nil
}

func encodeColumnData(col *table.Column) ([]byte, error) {
	buf := new(bytes.Buffer)
	switch col.Type.Kind {
	case table.KindBool:
		for _, v := range col.Data.([]bool) {
			b := byte(0)
			if v {
				b = 1
			}
			buf.WriteByte(b)
		}
	case table.KindInt8, table.KindInt16, table.KindInt32, table.KindInt64,
		table.KindUint8, table.KindUint16, table.KindUint32, table.KindUint64,
		table.KindFloat32, table.KindFloat64:
		if err := binary.Write(buf, ByteOrder, col.Data); err != nil {
			return nil, err
		}
	case table.KindString, table.KindBinary:
		values := col.Data.([][]byte)
		if err := binary.Write(buf, ByteOrder, uint32(len(values))); err != nil {
			return nil, err
		}
		for _, v := range values {
			if err := binary.Write(buf, ByteOrder, uint32(len(v))); err != nil {
				return nil, err
			}
			buf.Write(v)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, col.Type)
	}
	return buf.Bytes(), nil
}

func decodeColumnData(kind table.Kind, raw []byte, rows int) (*table.Column, error) {
	r := bytes.NewReader(raw)
	switch kind {
	case table.KindBool:
		values := make([]bool, rows)
		for i := range values {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			values[i] = b != 0
		}
		return table.NewBoolColumn("", values), nil
	case table.KindInt8:
		return readNumeric[int8](r, rows)
	case table.KindInt16:
		return readNumeric[int16](r, rows)
	case table.KindInt32:
		return readNumeric[int32](r, rows)
	case table.KindInt64:
		return readNumeric[int64](r, rows)
	case table.KindUint8:
		return readNumeric[uint8](r, rows)
	case table.KindUint16:
		return readNumeric[uint16](r, rows)
	case table.KindUint32:
		return readNumeric[uint32](r, rows)
	case table.KindUint64:
		return readNumeric[uint64](r, rows)
	case table.KindFloat32:
		return readNumeric[float32](r, rows)
	case table.KindFloat64:
		return readNumeric[float64](r, rows)
	case table.KindString, table.KindBinary:
		var count uint32
		if err := binary.Read(r, ByteOrder, &count); err != nil {
			return nil, err
		}
		values := make([][]byte, count)
		for i := range values {
			var n uint32
			if err := binary.Read(r, ByteOrder, &n); err != nil {
				return nil, err
			}
			v := make([]byte, n)
			if _, err := io.ReadFull(r, v); err != nil {
				return nil, err
			}
			values[i] = v
		}
		col := table.NewBinaryColumn("", values)
		if kind == table.KindString {
			col.Type = table.Primitive(table.KindString)
		}
		return col, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func readNumeric[T table.Numeric](r *bytes.Reader, rows int) (*table.Column, error) {
	values := make([]T, rows)
	if err := binary.Read(r, ByteOrder, values); err != nil {
		return nil, err
	}
	return table.NewNumericColumn("", values), nil
}

func compress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCodec, codec)
	}
}

func decompress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Decode(nil, data)
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCodec, codec)
	}
}
