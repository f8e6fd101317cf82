// Package prepare assembles the exact set of samples one task's
// training is allowed to see. It composes the task split, the replay
// draw and the semi-supervised cut in a fixed order: split first, then
// replay concatenated after the primary subset, then stratification
// over the combined mixture. Stratifying last is deliberate, so a
// label fraction reflects the actual training mixture rather than the
// new task alone.
package prepare

import (
	"fmt"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/replay"
	"github.com/hollen/taskline/internal/split"
	"github.com/hollen/taskline/internal/stratify"
)

// Options configures one preparation call.
type Options struct {
	// Source selects the training window over the task stream.
	Source Source

	// NumTasks and Strategy shape the task plan; Seed drives every
	// random draw made during preparation.
	NumTasks int
	Strategy split.Strategy
	Seed     int64

	// TaskIdx is the current task. Ignored for all_tasks.
	TaskIdx int

	// ClassTasks and DomainTasks optionally pin the plan's grouping.
	ClassTasks  [][]int
	DomainTasks [][]string

	// Replay turns on rehearsal of prior tasks under Budget.
	Replay bool
	Budget replay.Budget

	// SemiSupervised, when set, keeps only that fraction of each
	// class in the final subset. Nil leaves labels untouched.
	SemiSupervised *float64
}

// Result is the outcome of a preparation call.
type Result struct {
	// Dataset is the final composed view handed to batching.
	Dataset data.Dataset

	// Primary is the subset selected by Source before any replay or
	// stratification.
	Primary *data.Subset

	// Replay holds the rehearsal draw, nil when replay was off or
	// there was nothing to replay.
	Replay *data.Subset

	// Plan is the task plan used, nil for all_tasks.
	Plan *split.Plan

	// Source and TaskIdx echo the request for reporting.
	Source  Source
	TaskIdx int
}

// Prepare derives the training subset for one task from scratch.
// Identical datasets, options and seed always produce identical
// subsets.
func Prepare(ds data.Dataset, opts Options) (*Result, error) {
	return PrepareWithPool(ds, opts, nil)
}

// PrepareWithPool is Prepare with an optional replay pool. When pool
// is non-nil the rehearsal samples come from the pool's remembered
// draws instead of being re-derived from prior task splits; the engine
// uses this to keep one bank alive across task boundaries.
func PrepareWithPool(ds data.Dataset, opts Options, pool *replay.Pool) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset is nil", data.ErrConfig)
	}
	if !opts.Source.IsValid() {
		return nil, fmt.Errorf("%w: unknown training data source %q", data.ErrConfig, opts.Source)
	}
	if opts.Replay && !opts.Source.AllowsReplay() {
		return nil, fmt.Errorf("%w: replay cannot be combined with source %q", data.ErrConfig, opts.Source)
	}
	if opts.Replay && opts.Budget.IsZero() {
		return nil, fmt.Errorf("%w: replay requires a proportion or an absolute sample budget", data.ErrConfig)
	}

	res := &Result{Source: opts.Source, TaskIdx: opts.TaskIdx}

	var err error
	res.Primary, res.Plan, err = primarySubset(ds, opts)
	if err != nil {
		return nil, err
	}

	final := data.Dataset(res.Primary)
	if opts.Replay {
		res.Replay, err = replaySubset(ds, res.Plan, opts, pool)
		if err != nil {
			return nil, err
		}
		if res.Replay != nil {
			final = data.NewConcat(res.Primary, res.Replay)
		}
	}

	if opts.SemiSupervised != nil {
		final, err = stratify.Subsample(final, *opts.SemiSupervised, opts.Seed)
		if err != nil {
			return nil, err
		}
	}

	res.Dataset = final
	return res, nil
}

// primarySubset selects the samples the source grants before replay.
func primarySubset(ds data.Dataset, opts Options) (*data.Subset, *split.Plan, error) {
	if opts.Source == SourceAllTasks {
		all := make([]int, ds.Len())
		for i := range all {
			all[i] = i
		}
		subset, err := data.NewSubset(ds, all)
		return subset, nil, err
	}

	plan, err := split.NewPlan(ds, split.PlanOptions{
		NumTasks:    opts.NumTasks,
		Strategy:    opts.Strategy,
		Seed:        opts.Seed,
		ClassTasks:  opts.ClassTasks,
		DomainTasks: opts.DomainTasks,
	})
	if err != nil {
		return nil, nil, err
	}

	var tasks []int
	switch opts.Source {
	case SourceCurrentTask:
		tasks = []int{opts.TaskIdx}
	case SourceSeenTasks:
		if opts.TaskIdx < 0 {
			return nil, nil, fmt.Errorf("%w: task index %d out of range [0, %d)", data.ErrConfig, opts.TaskIdx, opts.NumTasks)
		}
		tasks = split.SeenTasks(opts.TaskIdx)
	}

	subset, _, err := split.Split(ds, plan, tasks...)
	if err != nil {
		return nil, nil, err
	}
	return subset, plan, nil
}

// replaySubset draws the rehearsal samples, from the pool when one is
// carried, otherwise from prior task splits. A nil result means there
// is nothing to replay and concatenation is skipped.
func replaySubset(ds data.Dataset, plan *split.Plan, opts Options, pool *replay.Pool) (*data.Subset, error) {
	if pool != nil {
		if pool.Len() == 0 {
			return nil, nil
		}
		idxs := pool.Indices()
		for _, i := range idxs {
			if task := plan.TaskOf(i); task >= opts.TaskIdx {
				return nil, fmt.Errorf("%w: replay pool holds a sample from task %d, not prior to task %d", data.ErrConfig, task, opts.TaskIdx)
			}
		}
		return data.NewSubset(ds, idxs)
	}

	prior := make([]int, opts.TaskIdx)
	for i := range prior {
		prior[i] = i
	}
	return replay.Sample(ds, plan, prior, opts.Seed, opts.Budget)
}
