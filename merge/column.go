package merge

import (
	"fmt"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"colmerge/table"
)

// mergeColumn interleaves two physical columns of identical kind by
// walking the indicator, pulling the next unconsumed value from the side
// each entry designates. Struct columns recurse field by field; list
// values are moved opaquely. The merged column takes the left column's
// name and is freshly allocated.
func mergeColumn(l, r *table.Column, ind []bool) (*table.Column, error) {
	if l.Type.Kind != r.Type.Kind {
		return nil, fmt.Errorf("%w: %s vs %s", table.ErrKindMismatch, l.Type, r.Type)
	}

	out := &table.Column{Name: l.Name, Type: l.Type, Length: len(ind)}

	switch l.Type.Kind {
	case table.KindBool:
		out.Data = interleave(l.Data.([]bool), r.Data.([]bool), ind)
	case table.KindInt8:
		out.Data = interleave(l.Data.([]int8), r.Data.([]int8), ind)
	case table.KindInt16:
		out.Data = interleave(l.Data.([]int16), r.Data.([]int16), ind)
	case table.KindInt32:
		out.Data = interleave(l.Data.([]int32), r.Data.([]int32), ind)
	case table.KindInt64:
		out.Data = interleave(l.Data.([]int64), r.Data.([]int64), ind)
	case table.KindUint8:
		out.Data = interleave(l.Data.([]uint8), r.Data.([]uint8), ind)
	case table.KindUint16:
		out.Data = interleave(l.Data.([]uint16), r.Data.([]uint16), ind)
	case table.KindUint32:
		out.Data = interleave(l.Data.([]uint32), r.Data.([]uint32), ind)
	case table.KindUint64:
		out.Data = interleave(l.Data.([]uint64), r.Data.([]uint64), ind)
	case table.KindFloat32:
		out.Data = interleave(l.Data.([]float32), r.Data.([]float32), ind)
	case table.KindFloat64:
		out.Data = interleave(l.Data.([]float64), r.Data.([]float64), ind)
	case table.KindString, table.KindBinary:
		// Text shares the binary backing; the relabel back to text
		// happens at the logical layer.
		out.Data = interleave(l.Data.([][]byte), r.Data.([][]byte), ind)
	case table.KindList:
		data, err := mergeListData(l, r, ind)
		if err != nil {
			return nil, err
		}
		out.Data = data
	case table.KindStruct:
		if l.NullCount()+r.NullCount() > 0 {
			return nil, fmt.Errorf("%w: column %q", ErrStructOuterNull, l.Name)
		}
		lf, rf := l.StructFields(), r.StructFields()
		if len(lf) != len(rf) {
			return nil, fmt.Errorf("%w: column %q has %d fields vs %d",
				table.ErrKindMismatch, l.Name, len(lf), len(rf))
		}
		fields := make([]*table.Column, len(lf))
		for i := range lf {
			merged, err := mergeColumn(lf[i], rf[i], ind)
			if err != nil {
				return nil, err
			}
			fields[i] = merged.Rename(lf[i].Name)
		}
		out.Data = fields
	default:
		return nil, fmt.Errorf("%w: cannot merge columns of type %s", table.ErrKindMismatch, l.Type)
	}

	out.Validity = interleaveValidity(l, r, ind)
	return out, nil
}

// interleave walks the indicator once, appending the next unconsumed value
// from the designated side. Instantiated per physical kind.
func interleave[T any](a, b []T, ind []bool) []T {
	out := make([]T, 0, len(a)+len(b))
	ai, bi := 0, 0
	for _, fromLeft := range ind {
		if fromLeft {
			out = append(out, a[ai])
			ai++
		} else {
			out = append(out, b[bi])
			bi++
		}
	}
	return out
}

// interleaveValidity merges the null bitmaps of both sides under the
// indicator. Returns nil when the merged column has no nulls.
func interleaveValidity(l, r *table.Column, ind []bool) *roaring.Bitmap {
	if l.Validity == nil && r.Validity == nil {
		return nil
	}
	out := roaring.New()
	ai, bi := uint32(0), uint32(0)
	for pos, fromLeft := range ind {
		if fromLeft {
			if l.Validity != nil && l.Validity.Contains(ai) {
				out.Add(uint32(pos))
			}
			ai++
		} else {
			if r.Validity != nil && r.Validity.Contains(bi) {
				out.Add(uint32(pos))
			}
			bi++
		}
	}
	if out.IsEmpty() {
		return nil
	}
	return out
}

// mergeListData interleaves at the list level: each output row copies one
// side's element range into the new child, leaving element order inside
// each list untouched.
func mergeListData(l, r *table.Column, ind []bool) (table.ListData, error) {
	ld, rd := l.List(), r.List()
	if ld.Child.Type.Kind != rd.Child.Type.Kind {
		return table.ListData{}, fmt.Errorf("%w: list elements %s vs %s",
			table.ErrKindMismatch, ld.Child.Type, rd.Child.Type)
	}

	offsets := make([]int64, 1, len(ind)+1)
	child := emptyLike(ld.Child)
	ai, bi := 0, 0
	for _, fromLeft := range ind {
		var src table.ListData
		var row int
		if fromLeft {
			src, row = ld, ai
			ai++
		} else {
			src, row = rd, bi
			bi++
		}
		start, end := src.Offsets[row], src.Offsets[row+1]
		if err := appendRange(child, src.Child, int(start), int(end)); err != nil {
			return table.ListData{}, err
		}
		offsets = append(offsets, offsets[len(offsets)-1]+end-start)
	}
	return table.ListData{Offsets: offsets, Child: child}, nil
}

// emptyLike allocates an empty column with the same type as c, ready to
// grow through appendRange.
func emptyLike(c *table.Column) *table.Column {
	out := &table.Column{Name: c.Name, Type: c.Type}
	switch c.Type.Kind {
	case table.KindBool:
		out.Data = []bool(nil)
	case table.KindInt8:
		out.Data = []int8(nil)
	case table.KindInt16:
		out.Data = []int16(nil)
	case table.KindInt32:
		out.Data = []int32(nil)
	case table.KindInt64:
		out.Data = []int64(nil)
	case table.KindUint8:
		out.Data = []uint8(nil)
	case table.KindUint16:
		out.Data = []uint16(nil)
	case table.KindUint32:
		out.Data = []uint32(nil)
	case table.KindUint64:
		out.Data = []uint64(nil)
	case table.KindFloat32:
		out.Data = []float32(nil)
	case table.KindFloat64:
		out.Data = []float64(nil)
	case table.KindString, table.KindBinary:
		out.Data = [][]byte(nil)
	case table.KindList:
		out.Data = table.ListData{Offsets: []int64{0}, Child: emptyLike(c.List().Child)}
	case table.KindStruct:
		src := c.StructFields()
		fields := make([]*table.Column, len(src))
		for i, f := range src {
			fields[i] = emptyLike(f)
		}
		out.Data = fields
	}
	return out
}

// appendRange appends rows [start, end) of src onto dst, which must have
// been built with emptyLike from a column of the same type.
func appendRange(dst, src *table.Column, start, end int) error {
	if start == end {
		return nil
	}

	switch src.Type.Kind {
	case table.KindBool:
		dst.Data = append(dst.Data.([]bool), src.Data.([]bool)[start:end]...)
	case table.KindInt8:
		dst.Data = append(dst.Data.([]int8), src.Data.([]int8)[start:end]...)
	case table.KindInt16:
		dst.Data = append(dst.Data.([]int16), src.Data.([]int16)[start:end]...)
	case table.KindInt32:
		dst.Data = append(dst.Data.([]int32), src.Data.([]int32)[start:end]...)
	case table.KindInt64:
		dst.Data = append(dst.Data.([]int64), src.Data.([]int64)[start:end]...)
	case table.KindUint8:
		dst.Data = append(dst.Data.([]uint8), src.Data.([]uint8)[start:end]...)
	case table.KindUint16:
		dst.Data = append(dst.Data.([]uint16), src.Data.([]uint16)[start:end]...)
	case table.KindUint32:
		dst.Data = append(dst.Data.([]uint32), src.Data.([]uint32)[start:end]...)
	case table.KindUint64:
		dst.Data = append(dst.Data.([]uint64), src.Data.([]uint64)[start:end]...)
	case table.KindFloat32:
		dst.Data = append(dst.Data.([]float32), src.Data.([]float32)[start:end]...)
	case table.KindFloat64:
		dst.Data = append(dst.Data.([]float64), src.Data.([]float64)[start:end]...)
	case table.KindString, table.KindBinary:
		dst.Data = append(dst.Data.([][]byte), src.Data.([][]byte)[start:end]...)
	case table.KindList:
		sd := src.List()
		dd := dst.List()
		childStart := dd.Child.Length
		if err := appendRange(dd.Child, sd.Child, int(sd.Offsets[start]), int(sd.Offsets[end])); err != nil {
			return err
		}
		base := int64(childStart) - sd.Offsets[start]
		for row := start; row < end; row++ {
			dd.Offsets = append(dd.Offsets, sd.Offsets[row+1]+base)
		}
		dst.Data = dd
	case table.KindStruct:
		df, sf := dst.StructFields(), src.StructFields()
		for i := range sf {
			if err := appendRange(df[i], sf[i], start, end); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: cannot append rows of type %s", table.ErrKindMismatch, src.Type)
	}

	if src.Validity != nil {
		for row := start; row < end; row++ {
			if src.Validity.Contains(uint32(row)) {
				dst.MarkNull(dst.Length + row - start)
			}
		}
	}
	dst.Length += end - start
	return nil
}
