package merge

import (
	"errors"
	"testing"

	"colmerge/dict"
	"colmerge/table"
)

func mustTable(t *testing.T, cols ...*table.Column) *table.Table {
	t.Helper()
	tbl, err := table.NewTable(cols...)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func int64Values(t *testing.T, tbl *table.Table, name string) []int64 {
	t.Helper()
	col, err := tbl.ColumnByName(name)
	if err != nil {
		t.Fatal(err)
	}
	return col.Data.([]int64)
}

// TestMergeSortedRoundTrip merges two single-column tables on a numeric
// key and checks the result is the stable merge of both inputs.
func TestMergeSortedRoundTrip(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1, 2, 4, 6, 9})
	rightKey := table.NewNumericColumn("id", []int64{2, 3, 4, 5, 10})
	left := mustTable(t, leftKey)
	right := mustTable(t, rightKey)

	out, err := MergeSorted(left, right, leftKey, rightKey, true)
	if err != nil {
		t.Fatal(err)
	}
	if out.NumRows() != 10 {
		t.Fatalf("expected 10 rows, got %d", out.NumRows())
	}
	want := []int64{1, 2, 2, 3, 4, 4, 5, 6, 9, 10}
	for i, v := range int64Values(t, out, "id") {
		if v != want[i] {
			t.Errorf("row %d: got %d, expected %d", i, v, want[i])
		}
	}
}

// TestMergeSortedMultiColumn verifies that payload columns follow the key
// order and keep the left table's column names.
func TestMergeSortedMultiColumn(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1, 3})
	rightKey := table.NewNumericColumn("id", []int64{2, 4})
	left := mustTable(t, leftKey, table.NewStringColumn("name", []string{"alice", "carol"}))
	right := mustTable(t, rightKey, table.NewStringColumn("name", []string{"bob", "dave"}))

	out, err := MergeSorted(left, right, leftKey, rightKey, true)
	if err != nil {
		t.Fatal(err)
	}
	names, err := out.ColumnByName("name")
	if err != nil {
		t.Fatal(err)
	}
	if names.Type.Kind != table.KindString {
		t.Errorf("expected string column, got %s", names.Type)
	}
	want := []string{"alice", "bob", "carol", "dave"}
	for i, w := range want {
		if got := names.StringAt(i); got != w {
			t.Errorf("row %d: got %q, expected %q", i, got, w)
		}
	}
}

// TestMergeSortedEmptySides verifies that an empty side returns the other
// table unchanged, with no merge work performed.
func TestMergeSortedEmptySides(t *testing.T) {
	d := dict.NewLocal([]string{"x", "y"})
	leftKey := table.NewNumericColumn("id", []int64{1, 2})
	left := mustTable(t, leftKey, table.NewCategoricalColumn("cat", []uint32{0, 1}, d, false))

	emptyKey := table.NewNumericColumn("id", []int64{})
	right := mustTable(t, emptyKey, table.NewCategoricalColumn("cat", []uint32{}, d, false))

	out, err := MergeSorted(left, right, leftKey, emptyKey, true)
	if err != nil {
		t.Fatal(err)
	}
	if out != left {
		t.Error("expected the left table to be returned unchanged")
	}
	if got, _ := out.ColumnByName("cat"); got.Type.Dict != d {
		t.Error("expected the original dictionary, not a new allocation")
	}

	out, err = MergeSorted(right, left, emptyKey, leftKey, true)
	if err != nil {
		t.Fatal(err)
	}
	if out != left {
		t.Error("expected the right table to be returned unchanged")
	}
}

// TestMergeSortedSchemaMismatch checks the schema equality enforcement
func TestMergeSortedSchemaMismatch(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1})
	rightKey := table.NewNumericColumn("id", []int64{2})
	left := mustTable(t, leftKey, table.NewStringColumn("name", []string{"a"}))
	right := mustTable(t, rightKey, table.NewStringColumn("label", []string{"b"}))

	_, err := MergeSorted(left, right, leftKey, rightKey, true)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}

	// Without schema checking the same inputs merge fine; the output
	// keeps the left table's column names.
	out, err := MergeSorted(left, right, leftKey, rightKey, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := out.ColumnByName("name"); err != nil {
		t.Errorf("expected merged column to keep the left name: %v", err)
	}
}

// TestMergeSortedKeyTypeMismatch checks the key dtype validation
func TestMergeSortedKeyTypeMismatch(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1})
	rightKey := table.NewNumericColumn("id", []int32{2})
	left := mustTable(t, leftKey)
	right := mustTable(t, rightKey)

	_, err := MergeSorted(left, right, leftKey, rightKey, false)
	if !errors.Is(err, ErrKeyTypeMismatch) {
		t.Fatalf("expected ErrKeyTypeMismatch, got %v", err)
	}
}

// TestMergeSortedNullableColumns verifies that validity travels with the
// interleaved values.
func TestMergeSortedNullableColumns(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1, 3})
	rightKey := table.NewNumericColumn("id", []int64{2, 4})
	leftVal := table.NewNumericColumn("v", []int64{10, 30}).MarkNull(1)
	rightVal := table.NewNumericColumn("v", []int64{20, 40}).MarkNull(0)
	left := mustTable(t, leftKey, leftVal)
	right := mustTable(t, rightKey, rightVal)

	out, err := MergeSorted(left, right, leftKey, rightKey, true)
	if err != nil {
		t.Fatal(err)
	}
	v, err := out.ColumnByName("v")
	if err != nil {
		t.Fatal(err)
	}
	// Merged rows: 10, null(20), null(30), 40.
	if v.NullCount() != 2 {
		t.Fatalf("expected 2 nulls, got %d", v.NullCount())
	}
	for _, row := range []int{1, 2} {
		if !v.IsNull(row) {
			t.Errorf("expected row %d to be null", row)
		}
	}
	for _, row := range []int{0, 3} {
		if v.IsNull(row) {
			t.Errorf("expected row %d to be non-null", row)
		}
	}
}

// TestMergeSortedListColumn verifies list values move opaquely
func TestMergeSortedListColumn(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1, 3})
	rightKey := table.NewNumericColumn("id", []int64{2})

	leftList, err := table.NewListColumn("tags",
		[]int64{0, 2, 3},
		table.NewStringColumn("", []string{"a", "b", "c"}))
	if err != nil {
		t.Fatal(err)
	}
	rightList, err := table.NewListColumn("tags",
		[]int64{0, 2},
		table.NewStringColumn("", []string{"x", "y"}))
	if err != nil {
		t.Fatal(err)
	}
	left := mustTable(t, leftKey, leftList)
	right := mustTable(t, rightKey, rightList)

	out, err := MergeSorted(left, right, leftKey, rightKey, true)
	if err != nil {
		t.Fatal(err)
	}
	col, err := out.ColumnByName("tags")
	if err != nil {
		t.Fatal(err)
	}
	ld := col.List()
	wantOffsets := []int64{0, 2, 4, 5}
	for i, w := range wantOffsets {
		if ld.Offsets[i] != w {
			t.Fatalf("offsets[%d] = %d, expected %d", i, ld.Offsets[i], w)
		}
	}
	wantElems := []string{"a", "b", "x", "y", "c"}
	for i, w := range wantElems {
		if got := ld.Child.StringAt(i); got != w {
			t.Errorf("element %d: got %q, expected %q", i, got, w)
		}
	}
}

// TestMergeSortedStructColumn verifies the recursive field-by-field merge
func TestMergeSortedStructColumn(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1, 3})
	rightKey := table.NewNumericColumn("id", []int64{2})

	leftStruct, err := table.NewStructColumn("point", []*table.Column{
		table.NewNumericColumn("x", []int64{10, 30}),
		table.NewStringColumn("label", []string{"p1", "p3"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	rightStruct, err := table.NewStructColumn("point", []*table.Column{
		table.NewNumericColumn("x", []int64{20}),
		table.NewStringColumn("label", []string{"p2"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	left := mustTable(t, leftKey, leftStruct)
	right := mustTable(t, rightKey, rightStruct)

	out, err := MergeSorted(left, right, leftKey, rightKey, true)
	if err != nil {
		t.Fatal(err)
	}
	col, err := out.ColumnByName("point")
	if err != nil {
		t.Fatal(err)
	}
	fields := col.StructFields()
	wantX := []int64{10, 20, 30}
	for i, w := range wantX {
		if got := fields[0].Data.([]int64)[i]; got != w {
			t.Errorf("x[%d] = %d, expected %d", i, got, w)
		}
	}
	wantLabel := []string{"p1", "p2", "p3"}
	for i, w := range wantLabel {
		if got := fields[1].StringAt(i); got != w {
			t.Errorf("label[%d] = %q, expected %q", i, got, w)
		}
	}
}

// TestMergeSortedStructOuterNull verifies the stated limitation: struct
// columns with outer-level nulls are rejected, never merged into garbage.
func TestMergeSortedStructOuterNull(t *testing.T) {
	leftKey := table.NewNumericColumn("id", []int64{1, 3})
	rightKey := table.NewNumericColumn("id", []int64{2})

	leftStruct, err := table.NewStructColumn("point", []*table.Column{
		table.NewNumericColumn("x", []int64{10, 30}),
	})
	if err != nil {
		t.Fatal(err)
	}
	leftStruct.MarkNull(1)
	rightStruct, err := table.NewStructColumn("point", []*table.Column{
		table.NewNumericColumn("x", []int64{20}),
	})
	if err != nil {
		t.Fatal(err)
	}
	left := mustTable(t, leftKey, leftStruct)
	right := mustTable(t, rightKey, rightStruct)

	_, err = MergeSorted(left, right, leftKey, rightKey, false)
	if !errors.Is(err, ErrStructOuterNull) {
		t.Fatalf("expected ErrStructOuterNull, got %v", err)
	}
}

// TestMergeSortedStructKey merges on a composite key via row encoding
func TestMergeSortedStructKey(t *testing.T) {
	leftKey, err := table.NewStructColumn("k", []*table.Column{
		table.NewStringColumn("a", []string{"x", "x", "y"}),
		table.NewNumericColumn("b", []int64{1, 5, 2}),
	})
	if err != nil {
		t.Fatal(err)
	}
	rightKey, err := table.NewStructColumn("k", []*table.Column{
		table.NewStringColumn("a", []string{"x", "y"}),
		table.NewNumericColumn("b", []int64{3, 1}),
	})
	if err != nil {
		t.Fatal(err)
	}
	left := mustTable(t, leftKey, table.NewNumericColumn("row", []int64{0, 1, 2}))
	right := mustTable(t, rightKey, table.NewNumericColumn("row", []int64{10, 11}))

	out, err := MergeSorted(left, right, leftKey, rightKey, false)
	if err != nil {
		t.Fatal(err)
	}
	// Sorted composite order: (x,1) (x,3) (x,5) (y,1) (y,2).
	want := []int64{0, 10, 1, 11, 2}
	for i, w := range int64Values(t, out, "row") {
		if w != want[i] {
			t.Errorf("row %d: got %d, expected %d", i, w, want[i])
		}
	}
}

// TestMergeSortedParallel verifies the parallel per-column path produces
// the same result as the sequential one.
func TestMergeSortedParallel(t *testing.T) {
	n := 500
	leftIDs := make([]int64, n)
	rightIDs := make([]int64, n)
	leftVals := make([]float64, n)
	rightVals := make([]float64, n)
	for i := 0; i < n; i++ {
		leftIDs[i] = int64(i * 2)
		rightIDs[i] = int64(i*2 + 1)
		leftVals[i] = float64(i)
		rightVals[i] = float64(-i)
	}
	leftKey := table.NewNumericColumn("id", leftIDs)
	rightKey := table.NewNumericColumn("id", rightIDs)
	left := mustTable(t, leftKey,
		table.NewNumericColumn("v", leftVals),
		table.NewNumericColumn("w", leftVals))
	right := mustTable(t, rightKey,
		table.NewNumericColumn("v", rightVals),
		table.NewNumericColumn("w", rightVals))

	seq, err := MergeSorted(left, right, leftKey, rightKey, true)
	if err != nil {
		t.Fatal(err)
	}
	par, err := MergeSortedOpts(left, right, leftKey, rightKey, true, Options{Parallelism: 4})
	if err != nil {
		t.Fatal(err)
	}
	if seq.NumRows() != par.NumRows() {
		t.Fatalf("row counts differ: %d vs %d", seq.NumRows(), par.NumRows())
	}
	for c := 0; c < seq.NumColumns(); c++ {
		sv := seq.Column(c)
		pv := par.Column(c)
		switch sd := sv.Data.(type) {
		case []int64:
			pd := pv.Data.([]int64)
			for i := range sd {
				if sd[i] != pd[i] {
					t.Fatalf("column %q row %d: %d vs %d", sv.Name, i, sd[i], pd[i])
				}
			}
		case []float64:
			pd := pv.Data.([]float64)
			for i := range sd {
				if sd[i] != pd[i] {
					t.Fatalf("column %q row %d: %f vs %f", sv.Name, i, sd[i], pd[i])
				}
			}
		}
	}
}
