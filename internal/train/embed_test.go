package train

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hollen/taskline/internal/data"
)

func TestGaussianAugmenterShapes(t *testing.T) {
	a := NewGaussianAugmenter(3, 0.1)

	vectors := [][]float64{{1, 2, 3}, {4, 5, 6}}
	v1, v2 := a.Augment(vectors)

	if len(v1) != 2 || len(v2) != 2 {
		t.Fatalf("views hold %d and %d vectors, want 2 each", len(v1), len(v2))
	}
	for i := range v1 {
		if len(v1[i]) != 3 || len(v2[i]) != 3 {
			t.Fatalf("view vectors changed dimension")
		}
	}

	// The originals must stay untouched.
	if vectors[0][0] != 1 || vectors[1][2] != 6 {
		t.Error("augmentation mutated the input batch")
	}
}

func TestGaussianAugmenterZeroNoise(t *testing.T) {
	a := NewGaussianAugmenter(3, 0)

	vectors := [][]float64{{1, 2}}
	v1, v2 := a.Augment(vectors)

	for k := range vectors[0] {
		if v1[0][k] != vectors[0][k] || v2[0][k] != vectors[0][k] {
			t.Fatal("zero noise should reproduce the input exactly")
		}
	}
}

func TestGaussianAugmenterViewsDiffer(t *testing.T) {
	a := NewGaussianAugmenter(3, 0.5)

	v1, v2 := a.Augment([][]float64{{1, 2, 3, 4}})

	same := true
	for k := range v1[0] {
		if v1[0][k] != v2[0][k] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected the two views to draw independent noise")
	}
}

func TestRandomProjectionDeterministic(t *testing.T) {
	a, err := NewRandomProjection(4, 3, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewRandomProjection(4, 3, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := [][]float64{{1, 0, -1, 2}, {0.5, 0.5, 0.5, 0.5}}
	za, err := a.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zb, err := b.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range za {
		if len(za[i]) != 3 {
			t.Fatalf("embedding dim = %d, want 3", len(za[i]))
		}
		for k := range za[i] {
			if za[i][k] != zb[i][k] {
				t.Fatal("same seed should give identical projections")
			}
		}
	}
}

func TestRandomProjectionRejectsWrongDim(t *testing.T) {
	p, err := NewRandomProjection(4, 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Embed([][]float64{{1, 2}}); err == nil {
		t.Error("expected an error for a mismatched input dimension")
	}
}

func TestRandomProjectionRejectsBadDims(t *testing.T) {
	if _, err := NewRandomProjection(0, 2, 1); !errors.Is(err, data.ErrConfig) {
		t.Errorf("zero input dim: got %v, want ErrConfig", err)
	}
	if _, err := NewRandomProjection(2, -1, 1); !errors.Is(err, data.ErrConfig) {
		t.Errorf("negative output dim: got %v, want ErrConfig", err)
	}
}

func TestRandomProjectionDriftChangesEmbeddings(t *testing.T) {
	p, err := NewRandomProjection(3, 2, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := [][]float64{{1, 1, 1}}
	before, err := p.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Drift(0.5)

	after, err := p.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	same := true
	for k := range before[0] {
		if before[0][k] != after[0][k] {
			same = false
		}
	}
	if same {
		t.Error("drift left the projection unchanged")
	}
}

func TestRandomProjectionSaveLoadRoundtrip(t *testing.T) {
	a, err := NewRandomProjection(4, 3, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Drift(0.3)

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b, err := NewRandomProjection(4, 3, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Load(&buf); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	view := [][]float64{{1, 0, -1, 2}}
	za, err := a.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zb, err := b.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for k := range za[0] {
		if za[0][k] != zb[0][k] {
			t.Fatal("loaded projection should embed identically to the saved one")
		}
	}
}

func TestRandomProjectionLoadRejectsMismatchedShape(t *testing.T) {
	a, err := NewRandomProjection(4, 3, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b, err := NewRandomProjection(5, 3, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Load(&buf); err == nil {
		t.Error("expected an error loading a projection with a different shape")
	}

	if err := b.Load(strings.NewReader("{not json")); err == nil {
		t.Error("expected an error for malformed state")
	}
}

func TestRandomProjectionSnapshotIsFrozen(t *testing.T) {
	p, err := NewRandomProjection(3, 2, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frozen := p.Snapshot()

	view := [][]float64{{0.5, -1, 2}}
	want, err := frozen.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The live projection keeps moving; the snapshot must not.
	p.Drift(1.0)

	got, err := frozen.Embed(view)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k := range want[0] {
		if got[0][k] != want[0][k] {
			t.Fatal("snapshot embeddings changed after the student drifted")
		}
	}
}
