// Package split partitions a dataset into a fixed sequence of tasks
// for task-incremental training. A Plan assigns every sample to
// exactly one task; Split then carves out the samples of any group of
// tasks together with the complementary rest of the dataset.
package split

import (
	"fmt"

	"github.com/hollen/taskline/internal/data"
)

// Split restricts ds to the samples of the given tasks and returns
// that subset along with the complement holding every other sample.
// Indices inside both views stay in ascending dataset order, so
// repeated calls with the same plan yield identical views.
func Split(ds data.Dataset, plan *Plan, taskIdxs ...int) (*data.Subset, *data.Subset, error) {
	if plan == nil {
		return nil, nil, fmt.Errorf("%w: plan is nil", data.ErrConfig)
	}
	if ds.Len() != len(plan.taskOf) {
		return nil, nil, fmt.Errorf("%w: plan covers %d samples but dataset has %d", data.ErrConfig, len(plan.taskOf), ds.Len())
	}
	if len(taskIdxs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one task index is required", data.ErrConfig)
	}

	member := make(map[int]bool, len(taskIdxs))
	for _, t := range taskIdxs {
		if err := plan.checkTask(t); err != nil {
			return nil, nil, err
		}
		member[t] = true
	}

	var sel, rest []int
	for i, t := range plan.taskOf {
		if member[t] {
			sel = append(sel, i)
		} else {
			rest = append(rest, i)
		}
	}

	subset, err := data.NewSubset(ds, sel)
	if err != nil {
		return nil, nil, err
	}
	complement, err := data.NewSubset(ds, rest)
	if err != nil {
		return nil, nil, err
	}
	return subset, complement, nil
}

// SeenTasks lists the task indices from 0 through current inclusive,
// the accumulation window used when training on everything observed
// so far.
func SeenTasks(current int) []int {
	out := make([]int, current+1)
	for i := range out {
		out[i] = i
	}
	return out
}
