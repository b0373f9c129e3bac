package tableio

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"

	"colmerge/table"
)

// ReadParquet reads a Parquet file into a table. path may be a local file
// path or an http(s) URL; remote files are read with HTTP range requests.
// Parquet stores fields in schema order, so columns come back ordered by
// name. Byte-array columns are read as text.
func ReadParquet(path string) (*table.Table, error) {
	if isHTTPURL(path) {
		return readParquetURL(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}
	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	return readParquetColumns(pf)
}

func isHTTPURL(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func readParquetURL(urlStr string) (*table.Table, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	httpRanger := &ranger.HTTPRanger{URL: parsedURL}
	reader, err := ranger.NewReader(httpRanger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP reader: %w", err)
	}
	length, err := reader.Length()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTTP content length: %w", err)
	}
	pf, err := parquet.OpenFile(reader, length)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote parquet file: %w", err)
	}
	return readParquetColumns(pf)
}

func readParquetColumns(pf *parquet.File) (*table.Table, error) {
	fields := pf.Schema().Fields()
	cols := make([]*table.Column, len(fields))

	for i, field := range fields {
		values, err := readColumnChunks(pf, i)
		if err != nil {
			return nil, fmt.Errorf("failed to read column %q: %w", field.Name(), err)
		}
		col, err := columnFromValues(field.Name(), field.Type().Kind(), values)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return table.NewTable(cols...)
}

// readColumnChunks collects every value of one leaf column across all row
// groups, in row order.
func readColumnChunks(pf *parquet.File, col int) ([]parquet.Value, error) {
	var out []parquet.Value
	buffer := make([]parquet.Value, 1024)
	for _, rg := range pf.RowGroups() {
		reader := parquet.NewColumnChunkValueReader(rg.ColumnChunks()[col])
		for {
			n, err := reader.ReadValues(buffer)
			out = append(out, buffer[:n]...)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func columnFromValues(name string, kind parquet.Kind, values []parquet.Value) (*table.Column, error) {
	var col *table.Column
	var nulls []int

	switch kind {
	case parquet.Boolean:
		data := make([]bool, len(values))
		for i, v := range values {
			if v.IsNull() {
				nulls = append(nulls, i)
				continue
			}
			data[i] = v.Boolean()
		}
		col = table.NewBoolColumn(name, data)
	case parquet.Int32:
		data := make([]int32, len(values))
		for i, v := range values {
			if v.IsNull() {
				nulls = append(nulls, i)
				continue
			}
			data[i] = v.Int32()
		}
		col = table.NewNumericColumn(name, data)
	case parquet.Int64:
		data := make([]int64, len(values))
		for i, v := range values {
			if v.IsNull() {
				nulls = append(nulls, i)
				continue
			}
			data[i] = v.Int64()
		}
		col = table.NewNumericColumn(name, data)
	case parquet.Float:
		data := make([]float32, len(values))
		for i, v := range values {
			if v.IsNull() {
				nulls = append(nulls, i)
				continue
			}
			data[i] = v.Float()
		}
		col = table.NewNumericColumn(name, data)
	case parquet.Double:
		data := make([]float64, len(values))
		for i, v := range values {
			if v.IsNull() {
				nulls = append(nulls, i)
				continue
			}
			data[i] = v.Double()
		}
		col = table.NewNumericColumn(name, data)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		data := make([]string, len(values))
		for i, v := range values {
			if v.IsNull() {
				nulls = append(nulls, i)
				continue
			}
			data[i] = string(v.ByteArray())
		}
		col = table.NewStringColumn(name, data)
	default:
		return nil, fmt.Errorf("%w: parquet kind %s", ErrUnsupportedKind, kind)
	}

	if len(nulls) > 0 {
		col.MarkNull(nulls...)
	}
	return col, nil
}

// WriteParquet writes a table to a Parquet file. Supported kinds: bool,
// int32, int64, float32, float64, text, and binary. Columns with a
// validity bitmap become optional fields.
func WriteParquet(path string, t *table.Table) error {
	group := parquet.Group{}
	for _, col := range t.Columns() {
		node, err := parquetNode(col)
		if err != nil {
			return err
		}
		group[col.Name] = node
	}
	schema := parquet.NewSchema("table", group)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[map[string]any](file, schema)
	rows := make([]map[string]any, t.NumRows())
	for row := range rows {
		m := make(map[string]any, t.NumColumns())
		for _, col := range t.Columns() {
			if col.IsNull(row) {
				continue
			}
			m[col.Name] = parquetValue(col, row)
		}
		rows[row] = m
	}
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

func parquetNode(col *table.Column) (parquet.Node, error) {
	var node parquet.Node
	switch col.Type.Kind {
	case table.KindBool:
		node = parquet.Leaf(parquet.BooleanType)
	case table.KindInt32:
		node = parquet.Leaf(parquet.Int32Type)
	case table.KindInt64:
		node = parquet.Leaf(parquet.Int64Type)
	case table.KindFloat32:
		node = parquet.Leaf(parquet.FloatType)
	case table.KindFloat64:
		node = parquet.Leaf(parquet.DoubleType)
	case table.KindString:
		node = parquet.String()
	case table.KindBinary:
		node = parquet.Leaf(parquet.ByteArrayType)
	default:
		return nil, fmt.Errorf("column %q: %w: %s", col.Name, ErrUnsupportedKind, col.Type)
	}
	if col.Validity != nil {
		node = parquet.Optional(node)
	}
	return node, nil
}

func parquetValue(col *table.Column, row int) any {
	switch col.Type.Kind {
	case table.KindBool:
		return col.Data.([]bool)[row]
	case table.KindInt32:
		return col.Data.([]int32)[row]
	case table.KindInt64:
		return col.Data.([]int64)[row]
	case table.KindFloat32:
		return col.Data.([]float32)[row]
	case table.KindFloat64:
		return col.Data.([]float64)[row]
	case table.KindString:
		return col.StringAt(row)
	case table.KindBinary:
		return col.Data.([][]byte)[row]
	default:
		return nil
	}
}
