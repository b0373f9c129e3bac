package merge

import (
	"bytes"
	"cmp"
	"fmt"

	"colmerge/rowenc"
	"colmerge/table"
)

// A merge indicator holds one entry per output row: true takes the next
// row from the left input, false from the right. Ties always take the left
// side first, so indicator(a, b) is not the negation of indicator(b, a).

// Indicator computes the merge indicator for two ascending-sorted slices
// of ordered values in O(len(a)+len(b)).
func Indicator[T cmp.Ordered](a, b []T) []bool {
	return indicatorFunc(a, b,
		func(x, y T) bool { return x <= y },
		func(x, y T) bool { return x >= y })
}

// indicatorFunc is the two-pointer core. leq and geq are distinct
// operators rather than one comparator so unordered values (NaN) keep the
// underlying comparison semantics: both report false and the row drains in
// input order.
func indicatorFunc[T any](a, b []T, leq, geq func(T, T) bool) []bool {
	if len(a) == 0 {
		return repeatBool(false, len(b))
	}
	if len(b) == 0 {
		return repeatBool(true, len(a))
	}

	total := len(a) + len(b)
	out := make([]bool, 0, total)
	bi := 0

	for ai := 0; ai < len(a); ai++ {
		av := a[ai]
		if leq(av, b[bi]) {
			out = append(out, true)
			continue
		}
		// Emit the pending right value, then drain right until one is
		// not smaller than the current left head.
		out = append(out, false)
		for {
			bi++
			if bi == len(b) {
				// Right side exhausted; the rest comes from the left.
				for len(out) < total {
					out = append(out, true)
				}
				return out
			}
			if geq(b[bi], av) {
				out = append(out, true)
				break
			}
			out = append(out, false)
		}
	}

	// Left side exhausted; b[bi] is still pending.
	for len(out) < total {
		out = append(out, false)
	}
	return out
}

func repeatBool(v bool, n int) []bool {
	out := make([]bool, n)
	if v {
		for i := range out {
			out[i] = true
		}
	}
	return out
}

// keyIndicator computes the merge indicator from two key columns of equal
// data type, dispatching on the physical kind. Categorical keys with
// lexical ordering compare decoded strings because codes from differing
// dictionaries are not comparable; struct keys are row-encoded into
// order-preserving byte strings.
func keyIndicator(left, right *table.Column) ([]bool, error) {
	if left.Type.Kind == table.KindCategorical && left.Type.Lexical {
		a, err := decodeCategorical(left)
		if err != nil {
			return nil, err
		}
		b, err := decodeCategorical(right)
		if err != nil {
			return nil, err
		}
		return nullableIndicator(a, b, left, right, cmpLeq[string], cmpGeq[string]), nil
	}

	if left.Type.Kind == table.KindStruct {
		a, err := rowenc.EncodeRows(left)
		if err != nil {
			return nil, err
		}
		b, err := rowenc.EncodeRows(right)
		if err != nil {
			return nil, err
		}
		// Row encodings fold field nulls into the byte string already.
		return indicatorFunc(a, b, bytesLeq, bytesGeq), nil
	}

	lphys := left.ToPhysical()
	rphys := right.ToPhysical()

	switch lphys.Type.Kind {
	case table.KindBool:
		return nullableIndicator(boolsAsBytes(lphys), boolsAsBytes(rphys), lphys, rphys, cmpLeq[uint8], cmpGeq[uint8]), nil
	case table.KindInt8:
		return orderedKeyIndicator[int8](lphys, rphys), nil
	case table.KindInt16:
		return orderedKeyIndicator[int16](lphys, rphys), nil
	case table.KindInt32:
		return orderedKeyIndicator[int32](lphys, rphys), nil
	case table.KindInt64:
		return orderedKeyIndicator[int64](lphys, rphys), nil
	case table.KindUint8:
		return orderedKeyIndicator[uint8](lphys, rphys), nil
	case table.KindUint16:
		return orderedKeyIndicator[uint16](lphys, rphys), nil
	case table.KindUint32:
		return orderedKeyIndicator[uint32](lphys, rphys), nil
	case table.KindUint64:
		return orderedKeyIndicator[uint64](lphys, rphys), nil
	case table.KindFloat32:
		return orderedKeyIndicator[float32](lphys, rphys), nil
	case table.KindFloat64:
		return orderedKeyIndicator[float64](lphys, rphys), nil
	case table.KindString, table.KindBinary:
		return nullableIndicator(lphys.Data.([][]byte), rphys.Data.([][]byte), lphys, rphys, bytesLeq, bytesGeq), nil
	default:
		return nil, fmt.Errorf("%w: cannot order merge key of type %s", ErrKeyTypeMismatch, left.Type)
	}
}

func orderedKeyIndicator[T cmp.Ordered](l, r *table.Column) []bool {
	return nullableIndicator(l.Data.([]T), r.Data.([]T), l, r, cmpLeq[T], cmpGeq[T])
}

// nullableIndicator runs the two-pointer core directly on the value slices
// when neither side has nulls, and on null-first wrapped values otherwise.
func nullableIndicator[T any](a, b []T, l, r *table.Column, leq, geq func(T, T) bool) []bool {
	if l.Validity == nil && r.Validity == nil {
		return indicatorFunc(a, b, leq, geq)
	}
	return indicatorFunc(wrapNullable(a, l), wrapNullable(b, r),
		func(x, y nullable[T]) bool {
			if !x.valid {
				return true
			}
			if !y.valid {
				return false
			}
			return leq(x.v, y.v)
		},
		func(x, y nullable[T]) bool {
			if !y.valid {
				return true
			}
			if !x.valid {
				return false
			}
			return geq(x.v, y.v)
		})
}

// nullable is the option wrapper for key comparison; nulls order first.
type nullable[T any] struct {
	valid bool
	v     T
}

func wrapNullable[T any](values []T, col *table.Column) []nullable[T] {
	out := make([]nullable[T], len(values))
	for i, v := range values {
		out[i] = nullable[T]{valid: !col.IsNull(i), v: v}
	}
	return out
}

func cmpLeq[T cmp.Ordered](x, y T) bool { return x <= y }
func cmpGeq[T cmp.Ordered](x, y T) bool { return x >= y }

func bytesLeq(x, y []byte) bool { return bytes.Compare(x, y) <= 0 }
func bytesGeq(x, y []byte) bool { return bytes.Compare(x, y) >= 0 }

func boolsAsBytes(c *table.Column) []uint8 {
	values := c.Data.([]bool)
	out := make([]uint8, len(values))
	for i, v := range values {
		if v {
			out[i] = 1
		}
	}
	return out
}

func decodeCategorical(c *table.Column) ([]string, error) {
	codes := c.Codes()
	out := make([]string, len(codes))
	for i, code := range codes {
		v, err := c.Type.Dict.Value(code)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
