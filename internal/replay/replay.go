// Package replay draws bounded samples of past tasks' data so the
// current task can rehearse what the model has already seen. Draws are
// seeded and stratified per class, which keeps the replayed mixture
// representative instead of skewed toward over-represented classes.
package replay

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/split"
)

// Budget bounds the size of a replay draw. Proportion keeps a fraction
// of each prior task's samples; NumSamples caps the total draw, split
// evenly across prior tasks with earlier tasks taking the remainder.
// When both are set, NumSamples wins.
type Budget struct {
	Proportion float64
	NumSamples int
}

// IsZero reports whether neither bound is set.
func (b Budget) IsZero() bool {
	return b.Proportion == 0 && b.NumSamples == 0
}

func (b Budget) validate() error {
	if b.NumSamples < 0 {
		return fmt.Errorf("%w: replay sample budget must not be negative, got %d", data.ErrConfig, b.NumSamples)
	}
	if b.IsZero() {
		return fmt.Errorf("%w: replay requires a proportion or an absolute sample budget", data.ErrConfig)
	}
	if b.NumSamples == 0 && (b.Proportion < 0 || b.Proportion > 1) {
		return fmt.Errorf("%w: replay proportion must be in (0, 1], got %g", data.ErrConfig, b.Proportion)
	}
	return nil
}

// Sample draws a budget-bounded sample from the given prior tasks and
// returns it as a subset of ds, indices ascending. It returns nil with
// no error when replayTaskIdxs is empty: on the first task there is
// nothing to replay, and the caller skips concatenation entirely.
func Sample(ds data.Dataset, plan *split.Plan, replayTaskIdxs []int, seed int64, budget Budget) (*data.Subset, error) {
	if len(replayTaskIdxs) == 0 {
		return nil, nil
	}
	if err := budget.validate(); err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", data.ErrConfig)
	}

	tasks, err := normalizeTasks(plan, replayTaskIdxs)
	if err != nil {
		return nil, err
	}
	quotas, err := taskQuotas(plan, tasks, budget)
	if err != nil {
		return nil, err
	}

	var union []int
	for _, t := range tasks {
		draw, err := DrawForTask(ds, plan, t, seed, quotas[t])
		if err != nil {
			return nil, err
		}
		union = append(union, draw...)
	}
	sort.Ints(union)

	return data.NewSubset(ds, union)
}

// DrawForTask draws up to quota samples from a single task, stratified
// per class, and returns them in draw order. Classes are interleaved
// round-robin, so any prefix of the result keeps roughly the task's
// class mixture; a stored draw can be truncated without skewing it.
func DrawForTask(ds data.Dataset, plan *split.Plan, task int, seed int64, quota int) ([]int, error) {
	idxs, err := plan.TaskIndices(task)
	if err != nil {
		return nil, err
	}
	if quota <= 0 {
		return nil, nil
	}
	if quota > len(idxs) {
		quota = len(idxs)
	}

	byClass := make(map[int][]int)
	for _, i := range idxs {
		c := ds.Target(i)
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	counts := classQuotas(classes, byClass, quota, len(idxs))

	rng := rand.New(rand.NewSource(taskSeed(seed, task)))
	picks := make([][]int, len(classes))
	for k, c := range classes {
		pool := make([]int, len(byClass[c]))
		copy(pool, byClass[c])
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		picks[k] = pool[:counts[k]]
	}

	out := make([]int, 0, quota)
	for round := 0; ; round++ {
		advanced := false
		for k := range picks {
			if round < len(picks[k]) {
				out = append(out, picks[k][round])
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}
	return out, nil
}

// classQuotas apportions quota across classes proportionally to their
// sizes, using largest-remainder rounding so the parts sum exactly.
func classQuotas(classes []int, byClass map[int][]int, quota, total int) []int {
	counts := make([]int, len(classes))
	fracs := make([]float64, len(classes))
	assigned := 0
	for k, c := range classes {
		exact := float64(quota) * float64(len(byClass[c])) / float64(total)
		counts[k] = int(math.Floor(exact))
		fracs[k] = exact - math.Floor(exact)
		assigned += counts[k]
	}

	order := make([]int, len(classes))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(i, j int) bool {
		return fracs[order[i]] > fracs[order[j]]
	})
	for i := 0; i < quota-assigned; i++ {
		counts[order[i]]++
	}
	return counts
}

func normalizeTasks(plan *split.Plan, tasks []int) ([]int, error) {
	sorted := make([]int, len(tasks))
	copy(sorted, tasks)
	sort.Ints(sorted)
	for i, t := range sorted {
		if _, err := plan.Count(t); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1] == t {
			return nil, fmt.Errorf("%w: replay task %d listed twice", data.ErrConfig, t)
		}
	}
	return sorted, nil
}

func taskQuotas(plan *split.Plan, tasks []int, budget Budget) (map[int]int, error) {
	quotas := make(map[int]int, len(tasks))

	if budget.NumSamples > 0 {
		base := budget.NumSamples / len(tasks)
		rem := budget.NumSamples % len(tasks)
		for pos, t := range tasks {
			q := base
			if pos < rem {
				q++
			}
			size, err := plan.Count(t)
			if err != nil {
				return nil, err
			}
			// A short task contributes what it has; the shortfall
			// is not redistributed.
			if q > size {
				q = size
			}
			quotas[t] = q
		}
		return quotas, nil
	}

	for _, t := range tasks {
		size, err := plan.Count(t)
		if err != nil {
			return nil, err
		}
		quotas[t] = int(math.Round(budget.Proportion * float64(size)))
	}
	return quotas, nil
}

// taskSeed derives a per-task stream from the run seed so draws for
// different tasks are independent but reproducible.
func taskSeed(seed int64, task int) int64 {
	return seed ^ int64(uint64(task+1)*0x9e3779b97f4a7c15)
}
