package data

import (
	"errors"
	"fmt"
	"sort"
)

// ErrConfig is the category for configuration errors: impossible task
// layouts, out-of-range indices, infeasible sampling fractions and the
// like. Every such error in the pipeline wraps it, so callers can test
// with errors.Is regardless of which package produced the failure.
var ErrConfig = errors.New("invalid configuration")

// Dataset is an ordered, immutable collection of labeled samples.
// Implementations own their storage; views built on top of a Dataset
// (Subset, Concat) never copy sample payloads.
type Dataset interface {
	// Len returns the number of samples.
	Len() int

	// Target returns the class label of sample i.
	Target(i int) int

	// Domain returns the domain name of sample i, or "" when the
	// dataset carries no domain labels.
	Domain(i int) string
}

// VectorSource is implemented by datasets whose samples carry a dense
// vector payload. Vector may return nil when sample i has no payload;
// callers must treat nil as "not available" rather than panic.
type VectorSource interface {
	Vector(i int) []float64
}

// SliceDataset is an in-memory Dataset backed by parallel slices.
// Domains and vectors are optional.
type SliceDataset struct {
	targets []int
	domains []string
	vectors [][]float64
}

// NewSliceDataset creates a dataset from per-sample class labels.
func NewSliceDataset(targets []int) *SliceDataset {
	return &SliceDataset{targets: targets}
}

// WithDomains attaches per-sample domain labels. The slice length must
// match the number of samples.
func (d *SliceDataset) WithDomains(domains []string) *SliceDataset {
	if len(domains) != len(d.targets) {
		panic(fmt.Sprintf("data: %d domain labels for %d samples", len(domains), len(d.targets)))
	}
	d.domains = domains
	return d
}

// WithVectors attaches per-sample dense vectors. The slice length must
// match the number of samples.
func (d *SliceDataset) WithVectors(vectors [][]float64) *SliceDataset {
	if len(vectors) != len(d.targets) {
		panic(fmt.Sprintf("data: %d vectors for %d samples", len(vectors), len(d.targets)))
	}
	d.vectors = vectors
	return d
}

// Len returns the number of samples.
func (d *SliceDataset) Len() int {
	return len(d.targets)
}

// Target returns the class label of sample i.
func (d *SliceDataset) Target(i int) int {
	return d.targets[i]
}

// Domain returns the domain label of sample i, or "" when the dataset
// has no domain labels.
func (d *SliceDataset) Domain(i int) string {
	if d.domains == nil {
		return ""
	}
	return d.domains[i]
}

// Vector returns the dense payload of sample i, or nil when the
// dataset has no vector payloads.
func (d *SliceDataset) Vector(i int) []float64 {
	if d.vectors == nil {
		return nil
	}
	return d.vectors[i]
}

// Classes returns the sorted distinct class labels of a dataset.
func Classes(ds Dataset) []int {
	seen := make(map[int]struct{})
	for i := 0; i < ds.Len(); i++ {
		seen[ds.Target(i)] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// Domains returns the distinct domain labels of a dataset in first
// appearance order. The result is empty when the dataset carries no
// domain labels.
func Domains(ds Dataset) []string {
	seen := make(map[string]struct{})
	var domains []string
	for i := 0; i < ds.Len(); i++ {
		d := ds.Domain(i)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			domains = append(domains, d)
		}
	}
	return domains
}

// ClassCounts returns the number of samples per class label.
func ClassCounts(ds Dataset) map[int]int {
	counts := make(map[int]int)
	for i := 0; i < ds.Len(); i++ {
		counts[ds.Target(i)]++
	}
	return counts
}
