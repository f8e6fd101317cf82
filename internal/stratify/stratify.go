// Package stratify draws class-balanced subsets for semi-supervised
// training, where only a fraction of each class keeps its labels.
package stratify

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hollen/taskline/internal/data"
)

// Subsample selects a fraction of ds per class and returns the
// selection as a subset view. Every class contributes round(fraction
// times its size) samples, so class ratios survive the cut. The same
// dataset, fraction and seed always select the same samples.
func Subsample(ds data.Dataset, fraction float64, seed int64) (*data.Subset, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", data.ErrConfig)
	}
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: label fraction must be in (0, 1], got %g", data.ErrConfig, fraction)
	}

	byClass := make(map[int][]int)
	for i := 0; i < ds.Len(); i++ {
		c := ds.Target(i)
		byClass[c] = append(byClass[c], i)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	var selected []int
	for _, c := range classes {
		idxs := byClass[c]
		k := int(math.Round(fraction * float64(len(idxs))))
		if k == 0 {
			return nil, fmt.Errorf("%w: class %d has %d samples, too few for fraction %g", data.ErrConfig, c, len(idxs), fraction)
		}
		rng.Shuffle(len(idxs), func(i, j int) {
			idxs[i], idxs[j] = idxs[j], idxs[i]
		})
		selected = append(selected, idxs[:k]...)
	}
	sort.Ints(selected)

	return data.NewSubset(ds, selected)
}
