package train

import (
	"fmt"
	"math"

	"github.com/hollen/taskline/internal/data"
)

// InfoNCE is the NT-Xent contrastive objective. The two view batches
// are stacked into one 2N batch; each embedding's positive is its
// counterpart view, every other embedding is a negative.
type InfoNCE struct {
	temperature float64
}

// NewInfoNCE creates the contrastive objective.
func NewInfoNCE(temperature float64) (*InfoNCE, error) {
	if temperature <= 0 {
		return nil, fmt.Errorf("%w: temperature must be positive, got %g", data.ErrConfig, temperature)
	}
	return &InfoNCE{temperature: temperature}, nil
}

// Name returns the objective name.
func (o *InfoNCE) Name() string {
	return string(ObjectiveInfoNCE)
}

// Loss computes the mean NT-Xent loss over the doubled batch.
func (o *InfoNCE) Loss(ctx *StepContext) (Result, error) {
	if len(ctx.Z1) == 0 || len(ctx.Z1) != len(ctx.Z2) {
		return Result{}, fmt.Errorf("views must be non-empty and equal sized, got %d and %d", len(ctx.Z1), len(ctx.Z2))
	}

	n := len(ctx.Z1)
	z := make([][]float64, 0, 2*n)
	for _, v := range ctx.Z1 {
		z = append(z, normalized(v))
	}
	for _, v := range ctx.Z2 {
		z = append(z, normalized(v))
	}

	var sum float64
	sims := make([]float64, 2*n)
	for i := range z {
		pos := (i + n) % (2 * n)

		// Scaled similarities against everything but self, shifted
		// by their max before exponentiation for stability.
		maxSim := math.Inf(-1)
		for k := range z {
			if k == i {
				continue
			}
			sims[k] = dot(z[i], z[k]) / o.temperature
			if sims[k] > maxSim {
				maxSim = sims[k]
			}
		}

		var denom float64
		for k := range z {
			if k == i {
				continue
			}
			denom += math.Exp(sims[k] - maxSim)
		}

		sum += -(sims[pos] - maxSim - math.Log(denom))
	}

	return Result{Name: o.Name(), Value: sum / float64(2*n), Weight: 1}, nil
}
