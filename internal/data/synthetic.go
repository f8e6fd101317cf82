package data

import (
	"fmt"
	"math"
	"math/rand"
)

// SyntheticOptions configures the synthetic cluster dataset.
type SyntheticOptions struct {
	// Classes is the number of distinct class labels.
	Classes int

	// PerClass is the number of samples generated per class.
	PerClass int

	// Dim is the dimensionality of the sample vectors.
	Dim int

	// Domains, when non-empty, assigns domain labels round-robin
	// across samples so every domain spans every class.
	Domains []string

	// Seed fixes the generator; identical options produce an
	// identical dataset.
	Seed int64

	// Spread is the noise radius around each class center. Zero
	// means the default of 0.1.
	Spread float64
}

// NewSynthetic generates an in-memory dataset of Gaussian class
// clusters. Each class gets a random unit-length center and PerClass
// samples scattered around it. Samples are laid out class by class,
// so labels are contiguous runs.
func NewSynthetic(opts SyntheticOptions) (*SliceDataset, error) {
	if opts.Classes < 1 {
		return nil, fmt.Errorf("%w: synthetic dataset needs at least 1 class, got %d", ErrConfig, opts.Classes)
	}
	if opts.PerClass < 1 {
		return nil, fmt.Errorf("%w: synthetic dataset needs at least 1 sample per class, got %d", ErrConfig, opts.PerClass)
	}
	if opts.Dim < 1 {
		return nil, fmt.Errorf("%w: synthetic dataset needs dim >= 1, got %d", ErrConfig, opts.Dim)
	}
	spread := opts.Spread
	if spread == 0 {
		spread = 0.1
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	centers := make([][]float64, opts.Classes)
	for c := range centers {
		centers[c] = randomUnit(rng, opts.Dim)
	}

	n := opts.Classes * opts.PerClass
	targets := make([]int, 0, n)
	vectors := make([][]float64, 0, n)
	for c := 0; c < opts.Classes; c++ {
		for s := 0; s < opts.PerClass; s++ {
			v := make([]float64, opts.Dim)
			for d := range v {
				v[d] = centers[c][d] + rng.NormFloat64()*spread
			}
			targets = append(targets, c)
			vectors = append(vectors, v)
		}
	}

	ds := NewSliceDataset(targets).WithVectors(vectors)
	if len(opts.Domains) > 0 {
		domains := make([]string, n)
		for i := range domains {
			domains[i] = opts.Domains[i%len(opts.Domains)]
		}
		ds.WithDomains(domains)
	}
	return ds, nil
}

func randomUnit(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	var norm float64
	for d := range v {
		v[d] = rng.NormFloat64()
		norm += v[d] * v[d]
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for d := range v {
		v[d] /= norm
	}
	return v
}
