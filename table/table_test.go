package table

import (
	"errors"
	"testing"

	"colmerge/dict"
)

// TestSchemaEqual verifies name- and type-sensitive schema comparison
func TestSchemaEqual(t *testing.T) {
	a, err := NewTable(
		NewNumericColumn("id", []int64{1}),
		NewStringColumn("name", []string{"x"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewTable(
		NewNumericColumn("id", []int64{2}),
		NewStringColumn("name", []string{"y"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SchemaEqual(b); err != nil {
		t.Errorf("identical schemas reported unequal: %v", err)
	}

	c, err := NewTable(
		NewNumericColumn("id", []int32{2}),
		NewStringColumn("name", []string{"y"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SchemaEqual(c); err == nil {
		t.Error("expected a type mismatch error")
	}

	d, err := NewTable(
		NewNumericColumn("id", []int64{2}),
		NewStringColumn("label", []string{"y"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SchemaEqual(d); err == nil {
		t.Error("expected a name mismatch error")
	}
}

// TestNewTableValidation verifies length and name checks
func TestNewTableValidation(t *testing.T) {
	_, err := NewTable(
		NewNumericColumn("a", []int64{1, 2}),
		NewNumericColumn("b", []int64{1}),
	)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}

	_, err = NewTable(
		NewNumericColumn("a", []int64{1}),
		NewNumericColumn("a", []int64{1}),
	)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

// TestPhysicalRoundTrip verifies the categorical and text conversions and
// the unchecked relabel back.
func TestPhysicalRoundTrip(t *testing.T) {
	d := dict.NewLocal([]string{"a", "b"})
	cat := NewCategoricalColumn("c", []uint32{0, 1, 0}, d, false)
	phys := cat.ToPhysical()
	if phys.Type.Kind != KindUint32 {
		t.Fatalf("categorical physical kind = %s, expected uint32", phys.Type)
	}
	back := phys.FromPhysicalUnchecked(cat.Type)
	if back.Type.Kind != KindCategorical || back.Type.Dict != d {
		t.Error("relabel did not restore the categorical type")
	}
	if &back.Data.([]uint32)[0] != &cat.Data.([]uint32)[0] {
		t.Error("physical conversion copied the code backing")
	}

	s := NewStringColumn("s", []string{"x", "y"})
	physS := s.ToPhysical()
	if physS.Type.Kind != KindBinary {
		t.Fatalf("text physical kind = %s, expected binary", physS.Type)
	}
	backS := physS.FromPhysicalUnchecked(Primitive(KindString))
	if backS.StringAt(1) != "y" {
		t.Error("relabel did not restore the text values")
	}
}

// TestStructPhysicalRecursion verifies nested physical conversion
func TestStructPhysicalRecursion(t *testing.T) {
	d := dict.NewLocal([]string{"a"})
	inner := NewCategoricalColumn("c", []uint32{0}, d, false)
	col, err := NewStructColumn("s", []*Column{inner})
	if err != nil {
		t.Fatal(err)
	}
	phys := col.ToPhysical()
	if phys.StructFields()[0].Type.Kind != KindUint32 {
		t.Error("struct physical conversion did not recurse into fields")
	}
	back := phys.FromPhysicalUnchecked(col.Type)
	if back.StructFields()[0].Type.Kind != KindCategorical {
		t.Error("struct relabel did not recurse into fields")
	}
}

// TestListColumnValidation verifies offset checks
func TestListColumnValidation(t *testing.T) {
	child := NewNumericColumn("", []int64{1, 2, 3})
	if _, err := NewListColumn("l", []int64{0, 2, 4}, child); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	col, err := NewListColumn("l", []int64{0, 2, 3}, child)
	if err != nil {
		t.Fatal(err)
	}
	if col.Length != 2 {
		t.Errorf("expected 2 rows, got %d", col.Length)
	}
}

// TestNullTracking verifies the validity bitmap helpers
func TestNullTracking(t *testing.T) {
	col := NewNumericColumn("n", []int64{1, 2, 3})
	if col.NullCount() != 0 || col.IsNull(0) {
		t.Error("fresh column should have no nulls")
	}
	col.MarkNull(1)
	if col.NullCount() != 1 || !col.IsNull(1) || col.IsNull(2) {
		t.Error("null marking is inconsistent")
	}
}
