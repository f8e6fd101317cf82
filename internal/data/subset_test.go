package data

import (
	"testing"
)

func TestNewSubset_RestrictsView(t *testing.T) {
	base := NewSliceDataset([]int{0, 0, 1, 1, 2, 2}).
		WithVectors([][]float64{{0}, {1}, {2}, {3}, {4}, {5}})

	sub, err := NewSubset(base, []int{1, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sub.Len() != 2 {
		t.Errorf("expected len 2, got %d", sub.Len())
	}
	if sub.Target(0) != 0 || sub.Target(1) != 2 {
		t.Errorf("unexpected targets: %d, %d", sub.Target(0), sub.Target(1))
	}
	if v := sub.Vector(1); len(v) != 1 || v[0] != 4 {
		t.Errorf("expected vector [4], got %v", v)
	}
}

func TestNewSubset_RejectsOutOfRange(t *testing.T) {
	base := NewSliceDataset([]int{0, 1})

	if _, err := NewSubset(base, []int{2}); err == nil {
		t.Error("expected error for index past the end")
	}
	if _, err := NewSubset(base, []int{-1}); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestSubset_IndicesReturnsCopy(t *testing.T) {
	base := NewSliceDataset([]int{0, 1, 2})
	sub, err := NewSubset(base, []int{0, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := sub.Indices()
	got[0] = 99
	if again := sub.Indices(); again[0] != 0 {
		t.Errorf("mutating the returned slice leaked into the view: %v", again)
	}
}

func TestSubset_VectorNilWithoutPayload(t *testing.T) {
	base := NewSliceDataset([]int{0, 1})
	sub, err := NewSubset(base, []int{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := sub.Vector(0); v != nil {
		t.Errorf("expected nil vector for payload-free base, got %v", v)
	}
}

func TestConcat_PreservesOrder(t *testing.T) {
	a := NewSliceDataset([]int{0, 1}).WithVectors([][]float64{{10}, {11}})
	b := NewSliceDataset([]int{2}).WithVectors([][]float64{{20}})

	c := NewConcat(a, b)

	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}
	wantTargets := []int{0, 1, 2}
	for i, want := range wantTargets {
		if got := c.Target(i); got != want {
			t.Errorf("target[%d]: expected %d, got %d", i, want, got)
		}
	}
	if v := c.Vector(2); v[0] != 20 {
		t.Errorf("expected vector 20 at position 2, got %v", v)
	}
}

func TestConcat_ViewsComposeWithSubset(t *testing.T) {
	base := NewSliceDataset([]int{0, 0, 1, 1})
	first, err := NewSubset(base, []int{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewSubset(base, []int{3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := NewConcat(first, second)
	sub, err := NewSubset(c, []int{0, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sub.Target(0) != 0 || sub.Target(1) != 1 {
		t.Errorf("unexpected targets through stacked views: %d, %d", sub.Target(0), sub.Target(1))
	}
}

func TestClasses_SortedDistinct(t *testing.T) {
	ds := NewSliceDataset([]int{3, 1, 3, 0, 1})
	got := Classes(ds)
	want := []int{0, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDomains_FirstAppearanceOrder(t *testing.T) {
	ds := NewSliceDataset([]int{0, 0, 0}).WithDomains([]string{"sketch", "real", "sketch"})
	got := Domains(ds)
	if len(got) != 2 || got[0] != "sketch" || got[1] != "real" {
		t.Errorf("expected [sketch real], got %v", got)
	}
}

func TestClassCounts(t *testing.T) {
	ds := NewSliceDataset([]int{0, 1, 1, 2, 2, 2})
	counts := ClassCounts(ds)
	if counts[0] != 1 || counts[1] != 2 || counts[2] != 3 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
