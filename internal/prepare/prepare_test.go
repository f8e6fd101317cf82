package prepare

import (
	"errors"
	"testing"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/replay"
	"github.com/hollen/taskline/internal/split"
)

// taskStream builds a dataset of numTasks classes with perClass
// samples each; under a class-sequential plan task t holds class t.
func taskStream(numTasks, perClass int) data.Dataset {
	targets := make([]int, 0, numTasks*perClass)
	for c := 0; c < numTasks; c++ {
		for i := 0; i < perClass; i++ {
			targets = append(targets, c)
		}
	}
	return data.NewSliceDataset(targets)
}

func baseOptions(numTasks, taskIdx int) Options {
	return Options{
		Source:   SourceCurrentTask,
		NumTasks: numTasks,
		TaskIdx:  taskIdx,
		Strategy: split.StrategyClassSequential,
		Seed:     42,
	}
}

func TestPrepareRejectsAllTasksWithReplay(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 1)
	opts.Source = SourceAllTasks
	opts.Replay = true
	opts.Budget = replay.Budget{Proportion: 0.5}

	res, err := Prepare(ds, opts)
	if !errors.Is(err, data.ErrConfig) {
		t.Fatalf("got error %v, want ErrConfig", err)
	}
	if res != nil {
		t.Fatal("rejected preparation still produced a result")
	}
}

func TestPrepareRejectsUnknownSource(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 1)
	opts.Source = "mixed"

	if _, err := Prepare(ds, opts); !errors.Is(err, data.ErrConfig) {
		t.Errorf("got error %v, want ErrConfig", err)
	}
}

func TestPrepareRejectsReplayWithoutBudget(t *testing.T) {
	ds := taskStream(3, 10)

	// Even on the first task, where nothing would be drawn, an empty
	// budget is a configuration mistake.
	for _, taskIdx := range []int{0, 1} {
		opts := baseOptions(3, taskIdx)
		opts.Replay = true

		if _, err := Prepare(ds, opts); !errors.Is(err, data.ErrConfig) {
			t.Errorf("task %d: got error %v, want ErrConfig", taskIdx, err)
		}
	}
}

func TestPrepareAllTasks(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 0)
	opts.Source = SourceAllTasks

	res, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dataset.Len() != ds.Len() {
		t.Errorf("all_tasks kept %d samples, want the full %d", res.Dataset.Len(), ds.Len())
	}
	if res.Plan != nil {
		t.Error("all_tasks should not build a task plan")
	}
	if res.Replay != nil {
		t.Error("all_tasks should not carry a replay subset")
	}
}

func TestPrepareCurrentTask(t *testing.T) {
	ds := taskStream(4, 10)

	res, err := Prepare(ds, baseOptions(4, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dataset.Len() != 10 {
		t.Fatalf("current task window holds %d samples, want 10", res.Dataset.Len())
	}
	for i := 0; i < res.Dataset.Len(); i++ {
		if c := res.Dataset.Target(i); c != 2 {
			t.Errorf("current task window holds class %d, want only class 2", c)
		}
	}
}

func TestPrepareSeenTasks(t *testing.T) {
	ds := taskStream(4, 10)
	opts := baseOptions(4, 2)
	opts.Source = SourceSeenTasks

	res, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Dataset.Len() != 30 {
		t.Fatalf("seen window holds %d samples, want 30", res.Dataset.Len())
	}
	counts := data.ClassCounts(res.Dataset)
	for c := 0; c <= 2; c++ {
		if counts[c] != 10 {
			t.Errorf("seen window holds %d samples of class %d, want 10", counts[c], c)
		}
	}
	if counts[3] != 0 {
		t.Errorf("seen window holds %d samples of the unseen task", counts[3])
	}
}

func TestPrepareFirstTaskReplayNoOp(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 0)
	opts.Replay = true
	opts.Budget = replay.Budget{Proportion: 0.5}

	res, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Replay != nil {
		t.Errorf("first task drew %d replay samples, want none", res.Replay.Len())
	}
	if res.Dataset.Len() != res.Primary.Len() {
		t.Errorf("final subset holds %d samples, want the primary %d unchanged", res.Dataset.Len(), res.Primary.Len())
	}
}

func TestPrepareReplayAppendsAfterPrimary(t *testing.T) {
	ds := taskStream(3, 20)
	opts := baseOptions(3, 1)
	opts.Replay = true
	opts.Budget = replay.Budget{NumSamples: 10}

	res, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Replay == nil || res.Replay.Len() != 10 {
		t.Fatalf("replay subset = %v, want 10 samples", res.Replay)
	}
	if res.Dataset.Len() != 30 {
		t.Fatalf("final subset holds %d samples, want 20 primary + 10 replay", res.Dataset.Len())
	}

	// Task 1 holds class 1; the replayed task 0 holds class 0. The
	// primary block comes first, replay strictly after.
	for i := 0; i < 20; i++ {
		if c := res.Dataset.Target(i); c != 1 {
			t.Fatalf("position %d holds class %d, want the primary class 1", i, c)
		}
	}
	for i := 20; i < 30; i++ {
		if c := res.Dataset.Target(i); c != 0 {
			t.Fatalf("position %d holds class %d, want the replayed class 0", i, c)
		}
	}
}

func TestPrepareStratifiesTheFullMixture(t *testing.T) {
	ds := taskStream(3, 20)
	frac := 0.5
	opts := baseOptions(3, 1)
	opts.Replay = true
	opts.Budget = replay.Budget{NumSamples: 10}
	opts.SemiSupervised = &frac

	res, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Stratification runs after replay concatenation, so both the
	// primary class and the replayed class are cut to the fraction.
	counts := data.ClassCounts(res.Dataset)
	if counts[1] != 10 {
		t.Errorf("kept %d samples of the primary class, want 10", counts[1])
	}
	if counts[0] != 5 {
		t.Errorf("kept %d samples of the replayed class, want 5", counts[0])
	}
	if res.Dataset.Len() != 15 {
		t.Errorf("final subset holds %d samples, want 15", res.Dataset.Len())
	}
}

func TestPrepareDeterministic(t *testing.T) {
	ds := taskStream(4, 16)
	frac := 0.5
	opts := baseOptions(4, 2)
	opts.Source = SourceSeenTasks
	opts.Replay = true
	opts.Budget = replay.Budget{Proportion: 0.25}
	opts.SemiSupervised = &frac

	a, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Prepare(ds, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Dataset.Len() != b.Dataset.Len() {
		t.Fatalf("final sizes differ: %d vs %d", a.Dataset.Len(), b.Dataset.Len())
	}
	for i := 0; i < a.Dataset.Len(); i++ {
		if a.Dataset.Target(i) != b.Dataset.Target(i) {
			t.Fatalf("final subsets diverge at position %d", i)
		}
	}
}

func TestPrepareWithPoolUsesStoredDraws(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 1)
	opts.Replay = true
	opts.Budget = replay.Budget{NumSamples: 4}

	pool := replay.NewPool()
	pool.Update(0, []int{2, 7, 4})

	res, err := PrepareWithPool(ds, opts, pool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Replay == nil || res.Replay.Len() != 3 {
		t.Fatalf("replay subset = %v, want the 3 pooled samples", res.Replay)
	}
	idxs := res.Replay.Indices()
	want := []int{2, 4, 7}
	for i := range want {
		if idxs[i] != want[i] {
			t.Fatalf("replay indices = %v, want %v", idxs, want)
		}
	}
}

func TestPrepareWithPoolRejectsCurrentTaskSamples(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 1)
	opts.Replay = true
	opts.Budget = replay.Budget{NumSamples: 4}

	// Sample 15 belongs to task 1, the task being trained.
	pool := replay.NewPool()
	pool.Update(1, []int{15})

	if _, err := PrepareWithPool(ds, opts, pool); !errors.Is(err, data.ErrConfig) {
		t.Errorf("got error %v, want ErrConfig for a pool holding current-task samples", err)
	}
}

func TestPrepareWithEmptyPool(t *testing.T) {
	ds := taskStream(3, 10)
	opts := baseOptions(3, 1)
	opts.Replay = true
	opts.Budget = replay.Budget{NumSamples: 4}

	res, err := PrepareWithPool(ds, opts, replay.NewPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Replay != nil {
		t.Errorf("empty pool yielded %d replay samples, want none", res.Replay.Len())
	}
}

func TestPrepareRejectsTaskOutOfRange(t *testing.T) {
	ds := taskStream(3, 10)

	for _, source := range []Source{SourceCurrentTask, SourceSeenTasks} {
		opts := baseOptions(3, 5)
		opts.Source = source
		if _, err := Prepare(ds, opts); !errors.Is(err, data.ErrConfig) {
			t.Errorf("%s: got error %v, want ErrConfig", source, err)
		}

		opts.TaskIdx = -1
		if _, err := Prepare(ds, opts); !errors.Is(err, data.ErrConfig) {
			t.Errorf("%s negative: got error %v, want ErrConfig", source, err)
		}
	}
}
