package data

import (
	"fmt"
	"sort"
)

// Subset is an index-restricted view of a base Dataset. It shares the
// base's storage; only the index slice is owned by the view.
type Subset struct {
	base    Dataset
	indices []int
	vec     VectorSource
}

// NewSubset creates a view of base restricted to the given indices.
// Indices are interpreted relative to base and must be in range.
func NewSubset(base Dataset, indices []int) (*Subset, error) {
	n := base.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("subset index %d out of range for dataset of %d samples", idx, n)
		}
	}
	s := &Subset{base: base, indices: indices}
	if vs, ok := base.(VectorSource); ok {
		s.vec = vs
	}
	return s, nil
}

// Len returns the number of samples in the view.
func (s *Subset) Len() int {
	return len(s.indices)
}

// Target returns the class label of view sample i.
func (s *Subset) Target(i int) int {
	return s.base.Target(s.indices[i])
}

// Domain returns the domain label of view sample i.
func (s *Subset) Domain(i int) string {
	return s.base.Domain(s.indices[i])
}

// Vector returns the dense payload of view sample i, or nil when the
// base dataset has none.
func (s *Subset) Vector(i int) []float64 {
	if s.vec == nil {
		return nil
	}
	return s.vec.Vector(s.indices[i])
}

// Indices returns a copy of the base indices selected by this view.
func (s *Subset) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// Concat is an order-preserving concatenation of datasets. Sample i
// resolves to the part containing position i, parts in construction
// order.
type Concat struct {
	parts   []Dataset
	offsets []int // offsets[k] is the first global position of part k
	total   int
}

// NewConcat concatenates the given datasets into a single view.
func NewConcat(parts ...Dataset) *Concat {
	c := &Concat{parts: parts, offsets: make([]int, len(parts))}
	for k, p := range parts {
		c.offsets[k] = c.total
		c.total += p.Len()
	}
	return c
}

// Len returns the total number of samples across all parts.
func (c *Concat) Len() int {
	return c.total
}

func (c *Concat) locate(i int) (Dataset, int) {
	// Find the last part whose offset is <= i.
	k := sort.Search(len(c.offsets), func(k int) bool { return c.offsets[k] > i }) - 1
	return c.parts[k], i - c.offsets[k]
}

// Target returns the class label of concatenated sample i.
func (c *Concat) Target(i int) int {
	p, j := c.locate(i)
	return p.Target(j)
}

// Domain returns the domain label of concatenated sample i.
func (c *Concat) Domain(i int) string {
	p, j := c.locate(i)
	return p.Domain(j)
}

// Vector returns the dense payload of concatenated sample i, or nil
// when the owning part has none.
func (c *Concat) Vector(i int) []float64 {
	p, j := c.locate(i)
	if vs, ok := p.(VectorSource); ok {
		return vs.Vector(j)
	}
	return nil
}
