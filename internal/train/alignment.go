package train

import "fmt"

// Alignment scores how close the two views of each sample embed: the
// mean squared distance between the normalized pairs. Zero when the
// views coincide, four when they point in opposite directions.
type Alignment struct{}

// NewAlignment creates the alignment objective.
func NewAlignment() *Alignment {
	return &Alignment{}
}

// Name returns the objective name.
func (o *Alignment) Name() string {
	return string(ObjectiveAlignment)
}

// Loss computes the mean squared view distance.
func (o *Alignment) Loss(ctx *StepContext) (Result, error) {
	if len(ctx.Z1) == 0 || len(ctx.Z1) != len(ctx.Z2) {
		return Result{}, fmt.Errorf("views must be non-empty and equal sized, got %d and %d", len(ctx.Z1), len(ctx.Z2))
	}

	var sum float64
	for i := range ctx.Z1 {
		a := normalized(ctx.Z1[i])
		b := normalized(ctx.Z2[i])
		for k := range a {
			d := a[k] - b[k]
			sum += d * d
		}
	}

	return Result{Name: o.Name(), Value: sum / float64(len(ctx.Z1)), Weight: 1}, nil
}
