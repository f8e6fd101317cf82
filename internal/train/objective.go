package train

import (
	"fmt"

	"github.com/hollen/taskline/internal/data"
)

// Result is one objective's contribution to a step.
type Result struct {
	Name   string
	Value  float64
	Weight float64
}

// Weighted returns the contribution after weighting.
func (r Result) Weighted() float64 {
	return r.Weight * r.Value
}

// Objective scores one training step. Implementations must be
// side-effect free with respect to the context.
type Objective interface {
	// Name identifies the objective in logs and reports.
	Name() string

	// Loss computes the objective's value for one step.
	Loss(ctx *StepContext) (Result, error)
}

// ObjectiveType represents the type of primary training objective.
type ObjectiveType string

const (
	// ObjectiveInfoNCE is the contrastive NT-Xent objective over the
	// doubled view batch.
	ObjectiveInfoNCE ObjectiveType = "infonce"

	// ObjectiveAlignment is the mean squared distance between the
	// normalized view pairs.
	ObjectiveAlignment ObjectiveType = "alignment"
)

// IsValid checks if the objective type is a known one.
func (t ObjectiveType) IsValid() bool {
	switch t {
	case ObjectiveInfoNCE, ObjectiveAlignment:
		return true
	}
	return false
}

// String returns string representation.
func (t ObjectiveType) String() string {
	return string(t)
}

// NewObjective creates a primary objective of the given type.
func NewObjective(objType ObjectiveType, temperature float64) (Objective, error) {
	switch objType {
	case ObjectiveInfoNCE:
		return NewInfoNCE(temperature)
	case ObjectiveAlignment:
		return NewAlignment(), nil
	default:
		return nil, fmt.Errorf("%w: unknown objective type %q", data.ErrConfig, objType)
	}
}

// Step runs every objective against the context and sums their
// weighted contributions into the step's total loss.
func Step(ctx *StepContext, objectives []Objective) (float64, []Result, error) {
	var total float64
	results := make([]Result, 0, len(objectives))
	for _, o := range objectives {
		res, err := o.Loss(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("objective %s: %w", o.Name(), err)
		}
		total += res.Weighted()
		results = append(results, res)
	}
	return total, results, nil
}
