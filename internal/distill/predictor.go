// Package distill couples a frozen teacher's embeddings to the live
// student: a predictor head maps the student's embeddings toward the
// teacher's space, and a BYOL-style regression loss pulls the
// prediction onto the frozen target. The teacher side is plain data;
// nothing propagates back into it.
package distill

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/hollen/taskline/internal/data"
)

const bnEps = 1e-5

// Predictor is the distillation head: a linear layer up to a hidden
// width, batch normalization over the batch statistics, ReLU, and a
// linear layer back down to the embedding width.
type Predictor struct {
	dim    int
	hidden int

	w1 [][]float64
	b1 []float64
	w2 [][]float64
	b2 []float64

	gamma []float64
	beta  []float64
}

type predictorState struct {
	Dim    int         `json:"dim"`
	Hidden int         `json:"hidden"`
	W1     [][]float64 `json:"w1"`
	B1     []float64   `json:"b1"`
	W2     [][]float64 `json:"w2"`
	B2     []float64   `json:"b2"`
	Gamma  []float64   `json:"gamma"`
	Beta   []float64   `json:"beta"`
}

// NewPredictor creates a predictor head for embeddings of the given
// width, with He-initialized weights drawn from the seed.
func NewPredictor(dim, hidden int, seed int64) (*Predictor, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: embedding dim must be positive, got %d", data.ErrConfig, dim)
	}
	if hidden < 1 {
		return nil, fmt.Errorf("%w: predictor hidden dim must be positive, got %d", data.ErrConfig, hidden)
	}

	rng := rand.New(rand.NewSource(seed))

	p := &Predictor{
		dim:    dim,
		hidden: hidden,
		w1:     heMatrix(rng, hidden, dim),
		b1:     make([]float64, hidden),
		w2:     heMatrix(rng, dim, hidden),
		b2:     make([]float64, dim),
		gamma:  make([]float64, hidden),
		beta:   make([]float64, hidden),
	}
	for i := range p.gamma {
		p.gamma[i] = 1
	}
	return p, nil
}

// Dim returns the embedding width the head works on.
func (p *Predictor) Dim() int {
	return p.dim
}

// Hidden returns the hidden width.
func (p *Predictor) Hidden() int {
	return p.hidden
}

// Forward runs the head over a batch of embeddings. Normalization
// uses the batch's own statistics, so the same vector can map
// differently in different batches.
func (p *Predictor) Forward(z [][]float64) ([][]float64, error) {
	if len(z) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	for i, v := range z {
		if len(v) != p.dim {
			return nil, fmt.Errorf("embedding %d has dim %d, want %d", i, len(v), p.dim)
		}
	}

	// Linear up.
	h := make([][]float64, len(z))
	for i, v := range z {
		row := make([]float64, p.hidden)
		for r := range p.w1 {
			s := p.b1[r]
			for c, x := range v {
				s += p.w1[r][c] * x
			}
			row[r] = s
		}
		h[i] = row
	}

	// Batch normalization, then ReLU.
	n := float64(len(h))
	for u := 0; u < p.hidden; u++ {
		var mean float64
		for i := range h {
			mean += h[i][u]
		}
		mean /= n

		var variance float64
		for i := range h {
			d := h[i][u] - mean
			variance += d * d
		}
		variance /= n

		invStd := 1 / math.Sqrt(variance+bnEps)
		for i := range h {
			v := (h[i][u] - mean) * invStd * p.gamma[u]
			v += p.beta[u]
			if v < 0 {
				v = 0
			}
			h[i][u] = v
		}
	}

	// Linear down.
	out := make([][]float64, len(h))
	for i, v := range h {
		row := make([]float64, p.dim)
		for r := range p.w2 {
			s := p.b2[r]
			for c, x := range v {
				s += p.w2[r][c] * x
			}
			row[r] = s
		}
		out[i] = row
	}
	return out, nil
}

// Save serializes the head's parameters to a writer.
func (p *Predictor) Save(w io.Writer) error {
	state := predictorState{
		Dim:    p.dim,
		Hidden: p.hidden,
		W1:     p.w1,
		B1:     p.b1,
		W2:     p.w2,
		B2:     p.b2,
		Gamma:  p.gamma,
		Beta:   p.beta,
	}

	return json.NewEncoder(w).Encode(state)
}

// Load deserializes the head's parameters from a reader.
func (p *Predictor) Load(r io.Reader) error {
	var state predictorState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return err
	}
	if state.Dim < 1 || state.Hidden < 1 {
		return fmt.Errorf("predictor state has invalid dims %dx%d", state.Dim, state.Hidden)
	}

	p.dim = state.Dim
	p.hidden = state.Hidden
	p.w1 = state.W1
	p.b1 = state.B1
	p.w2 = state.W2
	p.b2 = state.B2
	p.gamma = state.Gamma
	p.beta = state.Beta

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
