package data

import (
	"testing"
)

func TestNewSynthetic_ShapeAndLabels(t *testing.T) {
	ds, err := NewSynthetic(SyntheticOptions{Classes: 3, PerClass: 10, Dim: 4, Seed: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ds.Len() != 30 {
		t.Fatalf("expected 30 samples, got %d", ds.Len())
	}
	counts := ClassCounts(ds)
	for c := 0; c < 3; c++ {
		if counts[c] != 10 {
			t.Errorf("class %d: expected 10 samples, got %d", c, counts[c])
		}
	}
	if v := ds.Vector(0); len(v) != 4 {
		t.Errorf("expected dim 4 vectors, got %d", len(v))
	}
}

func TestNewSynthetic_DeterministicForSeed(t *testing.T) {
	opts := SyntheticOptions{Classes: 2, PerClass: 5, Dim: 3, Seed: 42}
	a, err := NewSynthetic(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewSynthetic(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < a.Len(); i++ {
		va, vb := a.Vector(i), b.Vector(i)
		for d := range va {
			if va[d] != vb[d] {
				t.Fatalf("sample %d differs between identically seeded datasets", i)
			}
		}
	}
}

func TestNewSynthetic_DomainsRoundRobin(t *testing.T) {
	ds, err := NewSynthetic(SyntheticOptions{
		Classes:  2,
		PerClass: 2,
		Dim:      2,
		Seed:     1,
		Domains:  []string{"real", "sketch"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ds.Domain(0) != "real" || ds.Domain(1) != "sketch" || ds.Domain(2) != "real" {
		t.Errorf("unexpected domain assignment: %q %q %q", ds.Domain(0), ds.Domain(1), ds.Domain(2))
	}
}

func TestNewSynthetic_RejectsBadOptions(t *testing.T) {
	cases := []SyntheticOptions{
		{Classes: 0, PerClass: 1, Dim: 1},
		{Classes: 1, PerClass: 0, Dim: 1},
		{Classes: 1, PerClass: 1, Dim: 0},
	}
	for i, opts := range cases {
		if _, err := NewSynthetic(opts); err == nil {
			t.Errorf("case %d: expected error for %+v", i, opts)
		}
	}
}
