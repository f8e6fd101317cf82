package prepare

// Source selects which part of the task stream a training step sees.
type Source string

const (
	// SourceAllTasks trains on the full dataset with no partitioning.
	// Replay is meaningless here and is rejected.
	SourceAllTasks Source = "all_tasks"

	// SourceCurrentTask trains on the current task's subset only.
	SourceCurrentTask Source = "current_task"

	// SourceSeenTasks trains on the union of every task observed so
	// far, current included.
	SourceSeenTasks Source = "seen_tasks"
)

// IsValid checks if the source is a known one.
func (s Source) IsValid() bool {
	switch s {
	case SourceAllTasks, SourceCurrentTask, SourceSeenTasks:
		return true
	}
	return false
}

// String returns string representation.
func (s Source) String() string {
	return string(s)
}

// AllowsReplay reports whether the source can be combined with replay.
// Training on everything makes rehearsal redundant, so requesting both
// is treated as a configuration mistake rather than a silent no-op.
func (s Source) AllowsReplay() bool {
	return s != SourceAllTasks
}
