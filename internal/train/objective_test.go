package train

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/hollen/taskline/internal/data"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestInfoNCEOrthogonalPairs(t *testing.T) {
	// Two samples with orthogonal unit embeddings and identical
	// views. At temperature 1 every anchor sees its positive at
	// similarity 1 and two negatives at 0, so the loss is exactly
	// log(e + 2) - 1.
	o, err := NewInfoNCE(1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := NewStepContext(0, 0, 0).WithViews(
		[][]float64{{1, 0}, {0, 1}},
		[][]float64{{1, 0}, {0, 1}},
	)
	res, err := o.Loss(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := math.Log(math.E+2) - 1
	if !almostEqual(res.Value, want, 1e-9) {
		t.Errorf("loss = %v, want %v", res.Value, want)
	}
	if res.Weight != 1 {
		t.Errorf("primary weight = %v, want 1", res.Weight)
	}
}

func TestInfoNCESingleSampleIsZero(t *testing.T) {
	o, err := NewInfoNCE(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With one sample the only other embedding is the positive, so
	// the softmax is trivially 1.
	ctx := NewStepContext(0, 0, 0).WithViews(
		[][]float64{{3, 4}},
		[][]float64{{3, 4}},
	)
	res, err := o.Loss(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Value, 0, 1e-12) {
		t.Errorf("loss = %v, want 0", res.Value)
	}
}

func TestInfoNCEPrefersAlignedViews(t *testing.T) {
	o, err := NewInfoNCE(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	z1 := [][]float64{{1, 0}, {0, 1}, {1, 1}}

	aligned, err := o.Loss(NewStepContext(0, 0, 0).WithViews(z1, z1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Swap the counterpart views so every positive points elsewhere.
	swapped := [][]float64{{0, 1}, {1, 1}, {1, 0}}
	misaligned, err := o.Loss(NewStepContext(0, 0, 0).WithViews(z1, swapped))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if aligned.Value >= misaligned.Value {
		t.Errorf("aligned loss %v should be below misaligned loss %v", aligned.Value, misaligned.Value)
	}
}

func TestInfoNCERejectsBadTemperature(t *testing.T) {
	for _, temp := range []float64{0, -0.5} {
		if _, err := NewInfoNCE(temp); !errors.Is(err, data.ErrConfig) {
			t.Errorf("temperature %g: got error %v, want ErrConfig", temp, err)
		}
	}
}

func TestInfoNCERejectsMismatchedViews(t *testing.T) {
	o, err := NewInfoNCE(1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := NewStepContext(0, 0, 0).WithViews(
		[][]float64{{1, 0}, {0, 1}},
		[][]float64{{1, 0}},
	)
	if _, err := o.Loss(ctx); err == nil {
		t.Error("expected an error for mismatched view sizes")
	}
}

func TestAlignmentIdenticalViewsIsZero(t *testing.T) {
	o := NewAlignment()

	z := [][]float64{{1, 2, 3}, {4, 5, 6}}
	res, err := o.Loss(NewStepContext(0, 0, 0).WithViews(z, z))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Value, 0, 1e-12) {
		t.Errorf("loss = %v, want 0 for identical views", res.Value)
	}
}

func TestAlignmentOppositeViews(t *testing.T) {
	o := NewAlignment()

	res, err := o.Loss(NewStepContext(0, 0, 0).WithViews(
		[][]float64{{2, 0}},
		[][]float64{{-5, 0}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(res.Value, 4, 1e-12) {
		t.Errorf("loss = %v, want 4 for opposite directions", res.Value)
	}
}

func TestAlignmentScaleInvariant(t *testing.T) {
	o := NewAlignment()

	a, err := o.Loss(NewStepContext(0, 0, 0).WithViews(
		[][]float64{{1, 1}},
		[][]float64{{1, 0}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := o.Loss(NewStepContext(0, 0, 0).WithViews(
		[][]float64{{10, 10}},
		[][]float64{{0.5, 0}},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(a.Value, b.Value, 1e-12) {
		t.Errorf("alignment should ignore scale: %v vs %v", a.Value, b.Value)
	}
}

type fixedObjective struct {
	name   string
	value  float64
	weight float64
	err    error
}

func (o *fixedObjective) Name() string { return o.name }

func (o *fixedObjective) Loss(ctx *StepContext) (Result, error) {
	if o.err != nil {
		return Result{}, o.err
	}
	return Result{Name: o.name, Value: o.value, Weight: o.weight}, nil
}

func TestStepSumsWeightedContributions(t *testing.T) {
	objectives := []Objective{
		&fixedObjective{name: "primary", value: 2.0, weight: 1.0},
		&fixedObjective{name: "aux", value: 0.5, weight: 4.0},
	}

	total, results, err := Step(NewStepContext(0, 0, 0), objectives)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(total, 4.0, 1e-12) {
		t.Errorf("total = %v, want 2 + 4*0.5 = 4", total)
	}
	if len(results) != 2 || results[0].Name != "primary" || results[1].Name != "aux" {
		t.Errorf("results = %v, want both objectives in order", results)
	}
}

func TestStepPropagatesObjectiveErrors(t *testing.T) {
	objectives := []Objective{
		&fixedObjective{name: "primary", value: 1, weight: 1},
		&fixedObjective{name: "broken", err: fmt.Errorf("no embeddings")},
	}

	_, _, err := Step(NewStepContext(0, 0, 0), objectives)
	if err == nil {
		t.Fatal("expected the failing objective's error")
	}
}

func TestNewObjective(t *testing.T) {
	o, err := NewObjective(ObjectiveInfoNCE, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := o.(*InfoNCE); !ok {
		t.Errorf("expected *InfoNCE, got %T", o)
	}

	o, err = NewObjective(ObjectiveAlignment, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := o.(*Alignment); !ok {
		t.Errorf("expected *Alignment, got %T", o)
	}

	if _, err := NewObjective("triplet", 0.5); !errors.Is(err, data.ErrConfig) {
		t.Errorf("unknown type: got error %v, want ErrConfig", err)
	}
}

func TestObjectiveTypeIsValid(t *testing.T) {
	valid := []ObjectiveType{ObjectiveInfoNCE, ObjectiveAlignment}
	for _, ot := range valid {
		if !ot.IsValid() {
			t.Errorf("expected %s to be valid", ot)
		}
	}
	if ObjectiveType("triplet").IsValid() {
		t.Error("expected 'triplet' to be invalid")
	}
}
