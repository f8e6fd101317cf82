package train

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/hollen/taskline/internal/data"
)

// Embedder maps a batch of input vectors into embedding space.
type Embedder interface {
	Embed(view [][]float64) ([][]float64, error)
}

// Snapshotter produces a frozen copy of an embedder. The copy's
// embeddings stay fixed while the live embedder keeps changing, which
// is what makes it usable as a distillation teacher.
type Snapshotter interface {
	Snapshot() Embedder
}

// StudentEmbedder is what the engine trains: it embeds batches and
// can be frozen at task boundaries.
type StudentEmbedder interface {
	Embedder
	Snapshotter
}

// Drifter is an embedder whose parameters can be nudged, standing in
// for a real optimization step.
type Drifter interface {
	Drift(scale float64)
}

// Augmenter produces the two stochastic views of a batch that
// self-supervised objectives compare.
type Augmenter interface {
	Augment(vectors [][]float64) (v1, v2 [][]float64)
}

// GaussianAugmenter perturbs each vector with seeded gaussian noise.
// Successive calls draw fresh noise, so the two views of a batch
// differ, but a fixed seed reproduces the whole sequence.
type GaussianAugmenter struct {
	rng    *rand.Rand
	stddev float64
}

// NewGaussianAugmenter creates an augmenter with the given noise
// level. A stddev of zero produces identical views.
func NewGaussianAugmenter(seed int64, stddev float64) *GaussianAugmenter {
	return &GaussianAugmenter{
		rng:    rand.New(rand.NewSource(seed)),
		stddev: stddev,
	}
}

// Augment returns two noisy copies of the batch.
func (a *GaussianAugmenter) Augment(vectors [][]float64) ([][]float64, [][]float64) {
	return a.noisy(vectors), a.noisy(vectors)
}

func (a *GaussianAugmenter) noisy(vectors [][]float64) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		nv := make([]float64, len(v))
		for k := range v {
			nv[k] = v[k] + a.rng.NormFloat64()*a.stddev
		}
		out[i] = nv
	}
	return out
}

// RandomProjection is a seeded linear embedder. It stands in for a
// real encoder: Embed projects inputs through a fixed weight matrix,
// Drift perturbs the matrix the way an optimizer step would, and
// Snapshot freezes the current weights into a teacher copy.
type RandomProjection struct {
	in, out int
	w       [][]float64
	rng     *rand.Rand
}

// NewRandomProjection creates a projection from inDim to outDim with
// He-scaled seeded gaussian weights.
func NewRandomProjection(inDim, outDim int, seed int64) (*RandomProjection, error) {
	if inDim < 1 || outDim < 1 {
		return nil, fmt.Errorf("%w: projection dims must be positive, got %dx%d", data.ErrConfig, inDim, outDim)
	}

	rng := rand.New(rand.NewSource(seed))
	w := heMatrix(rng, outDim, inDim)

	return &RandomProjection{in: inDim, out: outDim, w: w, rng: rng}, nil
}

// Embed projects every vector in the view.
func (p *RandomProjection) Embed(view [][]float64) ([][]float64, error) {
	out := make([][]float64, len(view))
	for i, v := range view {
		if len(v) != p.in {
			return nil, fmt.Errorf("input dim %d does not match projection dim %d", len(v), p.in)
		}
		z := make([]float64, p.out)
		for r := range p.w {
			z[r] = dot(p.w[r], v)
		}
		out[i] = z
	}
	return out, nil
}

// Drift perturbs the weights in place with gaussian noise of the
// given scale.
func (p *RandomProjection) Drift(scale float64) {
	for r := range p.w {
		for c := range p.w[r] {
			p.w[r][c] += p.rng.NormFloat64() * scale
		}
	}
}

// Snapshot returns a frozen copy of the projection.
func (p *RandomProjection) Snapshot() Embedder {
	w := make([][]float64, len(p.w))
	for r := range p.w {
		w[r] = make([]float64, len(p.w[r]))
		copy(w[r], p.w[r])
	}
	return &RandomProjection{in: p.in, out: p.out, w: w, rng: rand.New(rand.NewSource(0))}
}

type projectionState struct {
	In  int         `json:"in"`
	Out int         `json:"out"`
	W   [][]float64 `json:"w"`
}

// Save serializes the projection weights to a writer.
func (p *RandomProjection) Save(w io.Writer) error {
	return json.NewEncoder(w).Encode(projectionState{In: p.in, Out: p.out, W: p.w})
}

// Load restores weights written by Save. Unlike the distillation head,
// the projection's shape is pinned by the dataset, so a stored state
// with a different shape is rejected rather than adopted.
func (p *RandomProjection) Load(r io.Reader) error {
	var state projectionState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return err
	}
	if state.In != p.in || state.Out != p.out {
		return fmt.Errorf("stored projection is %dx%d, want %dx%d", state.In, state.Out, p.in, p.out)
	}
	if len(state.W) != p.out {
		return fmt.Errorf("stored weights have %d rows, want %d", len(state.W), p.out)
	}
	for r2, row := range state.W {
		if len(row) != p.in {
			return fmt.Errorf("stored weight row %d has %d cols, want %d", r2, len(row), p.in)
		}
	}

	p.w = state.W
	return nil
}

// heMatrix draws a rows-by-cols weight matrix with He initialization.
func heMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	std := math.Sqrt(2.0 / float64(cols))
	w := make([][]float64, rows)
	for r := range w {
		w[r] = make([]float64, cols)
		for c := range w[r] {
			w[r][c] = rng.NormFloat64() * std
		}
	}
	return w
}
