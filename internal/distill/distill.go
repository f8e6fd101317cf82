package distill

import (
	"fmt"
	"math"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/train"
)

// Loss is the regression target pulling predictions onto frozen
// embeddings: the mean over the batch of 2 - 2*cos(p_i, z_i). It is
// zero for perfectly aligned pairs and four for opposed ones. A
// zero vector has no direction and scores as orthogonal.
func Loss(predicted, target [][]float64) (float64, error) {
	if len(predicted) == 0 {
		return 0, fmt.Errorf("empty batch")
	}
	if len(predicted) != len(target) {
		return 0, fmt.Errorf("batch size mismatch: %d predictions, %d targets", len(predicted), len(target))
	}

	var sum float64
	for i := range predicted {
		p, z := predicted[i], target[i]
		if len(p) != len(z) {
			return 0, fmt.Errorf("pair %d has dims %d and %d", i, len(p), len(z))
		}
		sum += 2 - 2*cosine(p, z)
	}
	return sum / float64(len(predicted)), nil
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Distiller scores the student's drift away from the frozen teacher.
// Each view's embedding runs through the predictor head and is pulled
// onto the teacher's embedding of the same view; the two view losses
// are averaged. On steps without a teacher the objective reports
// zero, so the first task trains on the primary objective alone.
type Distiller struct {
	predictor *Predictor
	lamb      float64
}

// New creates a distillation objective with the given weight. A zero
// weight keeps the objective in the loop but silences it.
func New(predictor *Predictor, lamb float64) (*Distiller, error) {
	if predictor == nil {
		return nil, fmt.Errorf("%w: distiller requires a predictor", data.ErrConfig)
	}
	if lamb < 0 {
		return nil, fmt.Errorf("%w: distillation weight must not be negative, got %v", data.ErrConfig, lamb)
	}

	return &Distiller{predictor: predictor, lamb: lamb}, nil
}

// Name implements train.Objective.
func (d *Distiller) Name() string {
	return "distill"
}

// Weight returns the distillation weight.
func (d *Distiller) Weight() float64 {
	return d.lamb
}

// Predictor returns the head, for checkpointing.
func (d *Distiller) Predictor() *Predictor {
	return d.predictor
}

// Loss implements train.Objective.
func (d *Distiller) Loss(ctx *train.StepContext) (train.Result, error) {
	if d.lamb == 0 || !ctx.HasTeacher() {
		return train.Result{Name: d.Name(), Value: 0, Weight: d.lamb}, nil
	}

	p1, err := d.predictor.Forward(ctx.Z1)
	if err != nil {
		return train.Result{}, fmt.Errorf("predict view 1: %w", err)
	}
	p2, err := d.predictor.Forward(ctx.Z2)
	if err != nil {
		return train.Result{}, fmt.Errorf("predict view 2: %w", err)
	}

	l1, err := Loss(p1, ctx.FrozenZ1)
	if err != nil {
		return train.Result{}, fmt.Errorf("view 1: %w", err)
	}
	l2, err := Loss(p2, ctx.FrozenZ2)
	if err != nil {
		return train.Result{}, fmt.Errorf("view 2: %w", err)
	}

	return train.Result{Name: d.Name(), Value: (l1 + l2) / 2, Weight: d.lamb}, nil
}

// PredictorLR derives the head's learning rate from the base rate
// and the distillation weight. A weight under one shrinks the head's
// gradient through the loss, so the rate is scaled up by the inverse
// to keep the head moving at full speed; weights of one or more leave
// the rate alone. A zero weight produces no gradient at all, so the
// base rate stands rather than dividing by zero.
func PredictorLR(base, lamb float64) float64 {
	if lamb > 0 && lamb < 1 {
		return base / lamb
	}
	return base
}
