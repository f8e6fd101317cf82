package tui

import (
	"time"

	"github.com/hollen/taskline/internal/train"
)

// Config holds TUI configuration
type Config struct {
	// Events is the engine's progress stream. The TUI exits when it
	// closes.
	Events  <-chan train.Event
	Version string
}

// taskRow is one finished task in the history table.
type taskRow struct {
	Task          int
	TrainSamples  int
	ReplaySamples int
	Primary       float64
	Distill       float64
	Total         float64
	Elapsed       time.Duration
}

// Model represents the TUI state
type Model struct {
	config Config

	// Stream shape, learned from the run start event.
	numTasks int
	epochs   int

	// Current position in the stream.
	task  int
	epoch int
	step  int
	steps int

	// Latest losses.
	loss    float64
	primary float64
	distill float64

	// Current task's subset.
	trainSamples  int
	replaySamples int

	// Finished tasks in stream order.
	history []taskRow

	// UI state
	width   int
	height  int
	waiting bool
	done    bool
	started time.Time
	now     time.Time
	elapsed time.Duration

	// Table scroll position
	tableOffset int
}

// NewModel creates a new TUI model
func NewModel(cfg Config) Model {
	now := time.Now()
	return Model{
		config:  cfg,
		waiting: true,
		started: now,
		now:     now,
	}
}
