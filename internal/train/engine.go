package train

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/loader"
	"github.com/hollen/taskline/internal/prepare"
	"github.com/hollen/taskline/internal/replay"
)

// EventKind identifies what an engine event reports.
type EventKind string

const (
	EventRunStart  EventKind = "run_start"
	EventTaskStart EventKind = "task_start"
	EventStep      EventKind = "step"
	EventEpochEnd  EventKind = "epoch_end"
	EventTaskEnd   EventKind = "task_end"
	EventRunEnd    EventKind = "run_end"
)

// Event reports engine progress. Step events are sent best-effort and
// may be dropped when the consumer lags; every other kind is always
// delivered.
type Event struct {
	Kind EventKind

	TaskIdx  int
	NumTasks int
	Epoch    int
	Epochs   int
	Step     int
	Steps    int

	TrainSamples  int
	ReplaySamples int

	// Loss is the step total for step events and the epoch average
	// for epoch and task events; Primary and Distill are its parts.
	Loss    float64
	Primary float64
	Distill float64

	Elapsed time.Duration
}

// TaskRecord summarizes one finished task for persistence.
type TaskRecord struct {
	TaskIdx       int
	TrainSamples  int
	ReplaySamples int
	Epochs        int
	PrimaryLoss   float64
	DistillLoss   float64
	TotalLoss     float64
	Duration      time.Duration
}

// Recorder persists task outcomes.
type Recorder interface {
	RecordTask(rec TaskRecord) error
}

// EngineOptions configures a training engine.
type EngineOptions struct {
	// Dataset is the full dataset; it must carry vector payloads.
	Dataset data.Dataset

	// Prepare shapes each task's subset. TaskIdx is overridden per
	// task as the engine walks the stream.
	Prepare prepare.Options

	// Loader shapes the per-epoch batch stream.
	Loader loader.Options

	// Epochs per task.
	Epochs int

	// StartTask resumes the task loop partway through the stream.
	StartTask int

	// Drift nudges the student's parameters after every epoch,
	// standing in for an optimizer step. Zero leaves it untouched.
	Drift float64

	// Student embeds both views and is frozen at task boundaries.
	Student StudentEmbedder

	// Augmenter derives the two views of every batch.
	Augmenter Augmenter

	// Objectives are summed into the step loss. The first one is the
	// primary objective; any others are auxiliary.
	Objectives []Objective

	// Pool, when set, is the replay bank carried across tasks; the
	// engine adds each finished task's draw to it. Nil keeps replay
	// stateless.
	Pool *replay.Pool

	// Store, when set alongside Pool, is synced after pool updates.
	Store *replay.Store

	// Recorder, when set, receives one record per finished task.
	Recorder Recorder

	Logger *slog.Logger

	// EventBuffer sizes the event channel. Zero means a sensible
	// default.
	EventBuffer int
}

// Engine trains a student embedder over the task stream: prepare the
// task's subset, walk it for a number of epochs, then freeze the
// student as the next task's distillation teacher.
type Engine struct {
	opts   EngineOptions
	logger *slog.Logger
	events chan Event
	frozen Embedder
}

// NewEngine validates the options and creates an engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Dataset == nil {
		return nil, fmt.Errorf("%w: dataset is nil", data.ErrConfig)
	}
	if !carriesVectors(opts.Dataset) {
		return nil, fmt.Errorf("%w: training requires a dataset with vector payloads", data.ErrConfig)
	}
	if opts.Epochs < 1 {
		return nil, fmt.Errorf("%w: epochs must be at least 1, got %d", data.ErrConfig, opts.Epochs)
	}
	if opts.Student == nil {
		return nil, fmt.Errorf("%w: student embedder is nil", data.ErrConfig)
	}
	if opts.Augmenter == nil {
		return nil, fmt.Errorf("%w: augmenter is nil", data.ErrConfig)
	}
	if len(opts.Objectives) == 0 {
		return nil, fmt.Errorf("%w: at least one objective is required", data.ErrConfig)
	}
	if opts.Prepare.Source != prepare.SourceAllTasks {
		if opts.StartTask < 0 || opts.StartTask >= opts.Prepare.NumTasks {
			return nil, fmt.Errorf("%w: start task %d out of range [0, %d)", data.ErrConfig, opts.StartTask, opts.Prepare.NumTasks)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}

	return &Engine{
		opts:   opts,
		logger: logger,
		events: make(chan Event, buffer),
	}, nil
}

func carriesVectors(ds data.Dataset) bool {
	vs, ok := ds.(data.VectorSource)
	return ok && ds.Len() > 0 && vs.Vector(0) != nil
}

// Events returns the progress channel. It is closed when Run returns.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Run walks the task stream. It returns the first error encountered,
// or ctx.Err() when cancelled. The event channel is closed on return.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.events)

	started := time.Now()
	tasks := e.taskSequence()

	e.logger.Info("training run starting",
		"tasks", len(tasks),
		"epochs", e.opts.Epochs,
		"source", e.opts.Prepare.Source.String(),
	)
	e.emit(ctx, Event{Kind: EventRunStart, NumTasks: len(tasks), Epochs: e.opts.Epochs})

	for _, t := range tasks {
		if err := e.runTask(ctx, t, len(tasks)); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	e.logger.Info("training run finished", "elapsed", time.Since(started))
	e.emit(ctx, Event{Kind: EventRunEnd, NumTasks: len(tasks), Elapsed: time.Since(started)})
	return nil
}

// taskSequence lists the task indices the run will visit. Training on
// everything is a single pass.
func (e *Engine) taskSequence() []int {
	if e.opts.Prepare.Source == prepare.SourceAllTasks {
		return []int{0}
	}
	var out []int
	for t := e.opts.StartTask; t < e.opts.Prepare.NumTasks; t++ {
		out = append(out, t)
	}
	return out
}

func (e *Engine) runTask(ctx context.Context, taskIdx, numTasks int) error {
	started := time.Now()

	popts := e.opts.Prepare
	popts.TaskIdx = taskIdx

	res, err := prepare.PrepareWithPool(e.opts.Dataset, popts, e.opts.Pool)
	if err != nil {
		return fmt.Errorf("prepare task %d: %w", taskIdx, err)
	}

	replaySamples := 0
	if res.Replay != nil {
		replaySamples = res.Replay.Len()
	}
	e.logger.Info("task prepared",
		"task", taskIdx,
		"primary_samples", res.Primary.Len(),
		"replay_samples", replaySamples,
		"final_samples", res.Dataset.Len(),
	)
	e.emit(ctx, Event{
		Kind:          EventTaskStart,
		TaskIdx:       taskIdx,
		NumTasks:      numTasks,
		Epochs:        e.opts.Epochs,
		TrainSamples:  res.Dataset.Len(),
		ReplaySamples: replaySamples,
	})

	ld, err := loader.New(res.Dataset, e.opts.Loader)
	if err != nil {
		return fmt.Errorf("loader for task %d: %w", taskIdx, err)
	}

	var avgTotal, avgPrimary, avgDistill float64
	for epoch := 0; epoch < e.opts.Epochs; epoch++ {
		avgTotal, avgPrimary, avgDistill, err = e.runEpoch(ctx, ld, taskIdx, epoch)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d, ok := e.opts.Student.(Drifter); ok && e.opts.Drift > 0 {
			d.Drift(e.opts.Drift)
		}

		e.logger.Info("epoch finished",
			"task", taskIdx,
			"epoch", epoch,
			"loss", avgTotal,
			"primary", avgPrimary,
			"distill", avgDistill,
		)
		e.emit(ctx, Event{
			Kind:          EventEpochEnd,
			TaskIdx:       taskIdx,
			NumTasks:      numTasks,
			Epoch:         epoch,
			Epochs:        e.opts.Epochs,
			TrainSamples:  res.Dataset.Len(),
			ReplaySamples: replaySamples,
			Loss:          avgTotal,
			Primary:       avgPrimary,
			Distill:       avgDistill,
		})
	}

	// The student becomes the next task's frozen teacher.
	e.frozen = e.opts.Student.Snapshot()

	if e.opts.Pool != nil && popts.Replay && res.Plan != nil {
		if err := e.updatePool(res, popts, taskIdx); err != nil {
			return err
		}
	}

	if e.opts.Recorder != nil {
		rec := TaskRecord{
			TaskIdx:       taskIdx,
			TrainSamples:  res.Dataset.Len(),
			ReplaySamples: replaySamples,
			Epochs:        e.opts.Epochs,
			PrimaryLoss:   avgPrimary,
			DistillLoss:   avgDistill,
			TotalLoss:     avgTotal,
			Duration:      time.Since(started),
		}
		if err := e.opts.Recorder.RecordTask(rec); err != nil {
			e.logger.Warn("failed to record task history", "task", taskIdx, "error", err)
		}
	}

	e.emit(ctx, Event{
		Kind:          EventTaskEnd,
		TaskIdx:       taskIdx,
		NumTasks:      numTasks,
		Epochs:        e.opts.Epochs,
		TrainSamples:  res.Dataset.Len(),
		ReplaySamples: replaySamples,
		Loss:          avgTotal,
		Primary:       avgPrimary,
		Distill:       avgDistill,
		Elapsed:       time.Since(started),
	})
	return nil
}

func (e *Engine) runEpoch(ctx context.Context, ld *loader.Loader, taskIdx, epoch int) (total, primary, distill float64, err error) {
	ld.Reshuffle(epoch)

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()
	batches := ld.Batches(bctx)

	var sumTotal, sumPrimary, sumDistill float64
	steps := 0
	var stepErr error
	for batch := range batches {
		t, p, d, err := e.runStep(ctx, taskIdx, epoch, steps, ld.NumBatches(), batch)
		if err != nil {
			stepErr = err
			cancel()
			break
		}
		sumTotal += t
		sumPrimary += p
		sumDistill += d
		steps++
	}
	for range batches {
	}
	if stepErr != nil {
		return 0, 0, 0, stepErr
	}

	if steps == 0 {
		return 0, 0, 0, nil
	}
	n := float64(steps)
	return sumTotal / n, sumPrimary / n, sumDistill / n, nil
}

func (e *Engine) runStep(ctx context.Context, taskIdx, epoch, step, steps int, batch loader.Batch) (total, primary, distill float64, err error) {
	v1, v2 := e.opts.Augmenter.Augment(batch.Vectors)

	z1, err := e.opts.Student.Embed(v1)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("student embedding: %w", err)
	}
	z2, err := e.opts.Student.Embed(v2)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("student embedding: %w", err)
	}

	sctx := NewStepContext(taskIdx, epoch, step).
		WithViews(z1, z2).
		WithBatch(batch.Indices, batch.Targets)

	if e.frozen != nil {
		fz1, err := e.frozen.Embed(v1)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("frozen embedding: %w", err)
		}
		fz2, err := e.frozen.Embed(v2)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("frozen embedding: %w", err)
		}
		sctx.WithFrozenViews(fz1, fz2)
	}

	stepTotal, results, err := Step(sctx, e.opts.Objectives)
	if err != nil {
		return 0, 0, 0, err
	}

	stepPrimary := results[0].Weighted()
	stepDistill := stepTotal - stepPrimary

	// Best-effort: a lagging consumer drops step events, not the run.
	select {
	case e.events <- Event{
		Kind:    EventStep,
		TaskIdx: taskIdx,
		Epoch:   epoch,
		Epochs:  e.opts.Epochs,
		Step:    step,
		Steps:   steps,
		Loss:    stepTotal,
		Primary: stepPrimary,
		Distill: stepDistill,
	}:
	default:
	}

	return stepTotal, stepPrimary, stepDistill, nil
}

// updatePool adds the finished task's draw to the replay bank and
// rebalances it under an absolute budget.
func (e *Engine) updatePool(res *prepare.Result, popts prepare.Options, taskIdx int) error {
	size, err := res.Plan.Count(taskIdx)
	if err != nil {
		return err
	}

	quota := size
	if popts.Budget.NumSamples > 0 {
		if popts.Budget.NumSamples < quota {
			quota = popts.Budget.NumSamples
		}
	} else {
		quota = int(float64(size)*popts.Budget.Proportion + 0.5)
	}

	draw, err := replay.DrawForTask(e.opts.Dataset, res.Plan, taskIdx, popts.Seed, quota)
	if err != nil {
		return err
	}
	e.opts.Pool.Update(taskIdx, draw)
	e.opts.Pool.Rebalance(popts.Budget.NumSamples)

	if e.opts.Store != nil {
		e.opts.Store.Sync(e.opts.Pool)
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	select {
	case e.events <- ev:
	case <-ctx.Done():
	}
}
