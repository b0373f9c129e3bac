package dict

import (
	"errors"
	"testing"
)

// TestLocalIdentity verifies that local dictionary identity follows
// content: same entries in the same order share a source, anything else
// does not.
func TestLocalIdentity(t *testing.T) {
	a := NewLocal([]string{"red", "green", "blue"})
	b := NewLocal([]string{"red", "green", "blue"})
	c := NewLocal([]string{"blue", "green", "red"})

	if !a.SameSource(b) {
		t.Error("dictionaries with identical content should share a source")
	}
	if a.SameSource(c) {
		t.Error("dictionaries with reordered content should not share a source")
	}
	if a.Hash() == 0 {
		t.Error("local dictionary should have a content hash")
	}
}

// TestLocalHashFraming verifies the content hash distinguishes entry
// boundaries.
func TestLocalHashFraming(t *testing.T) {
	a := NewLocal([]string{"ab", "c"})
	b := NewLocal([]string{"a", "bc"})
	if a.SameSource(b) {
		t.Error("different entry boundaries must not collide")
	}
}

// TestGlobalSameSource verifies namespace-based identity
func TestGlobalSameSource(t *testing.T) {
	ns := NewNamespace()
	a := NewGlobal(ns, []string{"x"})
	b := NewGlobal(ns, []string{"y", "z"})
	c := NewGlobal(NewNamespace(), []string{"x"})

	if !a.SameSource(b) {
		t.Error("global dictionaries in one namespace share a source")
	}
	if a.SameSource(c) {
		t.Error("global dictionaries in different namespaces do not share a source")
	}
	if a.SameSource(NewLocal([]string{"x"})) {
		t.Error("mixed origins never share a source")
	}
}

// TestMergeUnion verifies the union merge, code remapping, and that
// inputs stay untouched.
func TestMergeUnion(t *testing.T) {
	ns := NewNamespace()
	l := NewGlobal(ns, []string{"a", "b", "c"})
	r := NewGlobal(ns, []string{"b", "d", "a"})

	merged, remap, err := Merge(l, r)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c", "d"}
	if merged.Len() != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), merged.Len())
	}
	for i, w := range want {
		v, err := merged.Value(uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		if v != w {
			t.Errorf("entry %d = %q, expected %q", i, v, w)
		}
	}
	// b -> 1, d -> 3 (appended), a -> 0.
	wantRemap := []uint32{1, 3, 0}
	for i, w := range wantRemap {
		if remap[i] != w {
			t.Errorf("remap[%d] = %d, expected %d", i, remap[i], w)
		}
	}
	if l.Len() != 3 || r.Len() != 3 {
		t.Error("inputs were modified")
	}
}

// TestMergeIdentity verifies that a right side already covered by the
// left returns the left dictionary itself with no remap.
func TestMergeIdentity(t *testing.T) {
	ns := NewNamespace()
	l := NewGlobal(ns, []string{"a", "b", "c"})
	r := NewGlobal(ns, []string{"a", "b"})

	merged, remap, err := Merge(l, r)
	if err != nil {
		t.Fatal(err)
	}
	if merged != l {
		t.Error("expected the left dictionary to be returned as-is")
	}
	if remap != nil {
		t.Errorf("expected nil remap, got %v", remap)
	}
}

// TestMergeNamespaceMismatch verifies the incompatibility error
func TestMergeNamespaceMismatch(t *testing.T) {
	l := NewGlobal(NewNamespace(), []string{"a"})
	r := NewGlobal(NewNamespace(), []string{"a"})
	if _, _, err := Merge(l, r); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible, got %v", err)
	}
}

// TestValueRange verifies decoding bounds
func TestValueRange(t *testing.T) {
	d := NewLocal([]string{"only"})
	if _, err := d.Value(1); !errors.Is(err, ErrCodeRange) {
		t.Fatalf("expected ErrCodeRange, got %v", err)
	}
	v, err := d.Value(0)
	if err != nil || v != "only" {
		t.Fatalf("Value(0) = %q, %v", v, err)
	}
	if code, ok := d.Code("only"); !ok || code != 0 {
		t.Errorf("Code(only) = %d, %v", code, ok)
	}
}
