package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/hollen/taskline/internal/data"
)

func rangeTargets(n int) []int {
	targets := make([]int, n)
	for i := range targets {
		targets[i] = i % 3
	}
	return targets
}

func collect(t *testing.T, l *Loader) []Batch {
	t.Helper()

	var batches []Batch
	for b := range l.Batches(context.Background()) {
		batches = append(batches, b)
	}
	return batches
}

func TestLoaderBatchCount(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(10))

	l, err := New(ds, Options{BatchSize: 3, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.NumBatches() != 4 {
		t.Errorf("expected 4 batches, got %d", l.NumBatches())
	}

	ld, err := New(ds, Options{BatchSize: 3, DropLast: true, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ld.NumBatches() != 3 {
		t.Errorf("expected 3 batches with drop_last, got %d", ld.NumBatches())
	}
}

func TestLoaderWalksInOrder(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(10))

	l, err := New(ds, Options{BatchSize: 4, Workers: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := collect(t, l)
	if len(batches) != 3 {
		t.Fatalf("streamed %d batches, want 3", len(batches))
	}

	var flat []int
	for _, b := range batches {
		if len(b.Indices) != len(b.Targets) {
			t.Fatalf("batch indices and targets differ in length: %d vs %d", len(b.Indices), len(b.Targets))
		}
		flat = append(flat, b.Indices...)
	}
	if len(flat) != 10 {
		t.Fatalf("streamed %d samples, want 10", len(flat))
	}
	for i, idx := range flat {
		if idx != i {
			t.Fatalf("position %d holds index %d, want the natural order", i, idx)
		}
	}
	if len(batches[2].Indices) != 2 {
		t.Errorf("trailing batch holds %d samples, want 2", len(batches[2].Indices))
	}
}

func TestLoaderDropLast(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(10))

	l, err := New(ds, Options{BatchSize: 4, DropLast: true, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := collect(t, l)
	if len(batches) != 2 {
		t.Fatalf("streamed %d batches, want 2", len(batches))
	}
	for i, b := range batches {
		if len(b.Indices) != 4 {
			t.Errorf("batch %d holds %d samples, want full batches only", i, len(b.Indices))
		}
	}
}

func TestLoaderTargetsMatchDataset(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(9))

	l, err := New(ds, Options{BatchSize: 2, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, b := range collect(t, l) {
		for k, idx := range b.Indices {
			if b.Targets[k] != ds.Target(idx) {
				t.Fatalf("batch target %d does not match dataset target %d for index %d", b.Targets[k], ds.Target(idx), idx)
			}
		}
	}
}

func TestLoaderReshuffleDeterministic(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(20))

	a, err := New(ds, Options{BatchSize: 5, Shuffle: true, Seed: 7, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New(ds, Options{BatchSize: 5, Shuffle: true, Seed: 7, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Reshuffle(3)
	b.Reshuffle(3)

	ab, bb := collect(t, a), collect(t, b)
	seen := make(map[int]bool)
	for i := range ab {
		for k := range ab[i].Indices {
			if ab[i].Indices[k] != bb[i].Indices[k] {
				t.Fatalf("epoch orders diverge at batch %d position %d", i, k)
			}
			if seen[ab[i].Indices[k]] {
				t.Fatalf("index %d appears twice in one epoch", ab[i].Indices[k])
			}
			seen[ab[i].Indices[k]] = true
		}
	}
	if len(seen) != 20 {
		t.Errorf("epoch covered %d distinct samples, want 20", len(seen))
	}
}

func TestLoaderReshuffleNoOpWithoutShuffle(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(6))

	l, err := New(ds, Options{BatchSize: 6, Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Reshuffle(5)

	batches := collect(t, l)
	for k, idx := range batches[0].Indices {
		if idx != k {
			t.Fatalf("validation order disturbed: position %d holds index %d", k, idx)
		}
	}
}

func TestLoaderCarriesVectors(t *testing.T) {
	ds, err := data.NewSynthetic(data.SyntheticOptions{Classes: 2, PerClass: 6, Dim: 4, Seed: 1})
	if err != nil {
		t.Fatalf("synthetic dataset: %v", err)
	}

	l, err := New(ds, Options{BatchSize: 5, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, b := range collect(t, l) {
		if b.Vectors == nil {
			t.Fatal("expected vectors for a payload-carrying dataset")
		}
		for k, idx := range b.Indices {
			if len(b.Vectors[k]) != 4 {
				t.Fatalf("vector for index %d has dim %d, want 4", idx, len(b.Vectors[k]))
			}
		}
	}

	plain, err := New(data.NewSliceDataset(rangeTargets(4)), Options{BatchSize: 2, Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range collect(t, plain) {
		if b.Vectors != nil {
			t.Fatal("expected no vectors for a label-only dataset")
		}
	}
}

func TestLoaderCancellation(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(100))

	l, err := New(ds, Options{BatchSize: 1, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := l.Batches(ctx)

	<-ch
	cancel()

	// The stream must terminate after cancellation.
	for range ch {
	}
}

func TestLoaderRejectsBadOptions(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(4))

	if _, err := New(ds, Options{BatchSize: 0}); !errors.Is(err, data.ErrConfig) {
		t.Errorf("zero batch size: got %v, want ErrConfig", err)
	}
	if _, err := New(ds, Options{BatchSize: 2, Workers: -1}); !errors.Is(err, data.ErrConfig) {
		t.Errorf("negative workers: got %v, want ErrConfig", err)
	}
}

func TestLoaderResolvesWorkers(t *testing.T) {
	ds := data.NewSliceDataset(rangeTargets(4))

	l, err := New(ds, Options{BatchSize: 2, Workers: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Workers() != 3 {
		t.Errorf("explicit workers = %d, want 3", l.Workers())
	}

	auto, err := New(ds, Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auto.Workers() < 1 {
		t.Errorf("autosized workers = %d, want at least 1", auto.Workers())
	}
}
