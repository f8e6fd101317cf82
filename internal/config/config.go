package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	Dataset        DatasetConfig     `yaml:"dataset"`
	Continual      ContinualConfig   `yaml:"continual"`
	Replay         ReplayConfig      `yaml:"replay"`
	SemiSupervised *float64          `yaml:"semi_supervised"`
	Distill        DistillConfig     `yaml:"distill"`
	Loader         LoaderConfig      `yaml:"loader"`
	Train          TrainConfig       `yaml:"train"`
	Persistence    PersistenceConfig `yaml:"persistence"`
	Logging        LoggingConfig     `yaml:"logging"`
}

// DatasetConfig selects and shapes the dataset.
type DatasetConfig struct {
	// Name picks the dataset kind: synthetic or manifest.
	Name string `yaml:"name"`

	// Manifest is the manifest file path for the manifest kind.
	Manifest string `yaml:"manifest"`

	// Shape of the synthetic kind.
	Classes         int      `yaml:"classes"`
	SamplesPerClass int      `yaml:"samples_per_class"`
	Dim             int      `yaml:"dim"`
	Domains         []string `yaml:"domains"`
}

// ContinualConfig shapes the task stream.
type ContinualConfig struct {
	// Source: all_tasks, current_task, seen_tasks
	Source string `yaml:"source"`

	// NumTasks is the number of tasks the dataset splits into.
	NumTasks int `yaml:"num_tasks"`

	// TaskIdx is the task to prepare, 0-based.
	TaskIdx int `yaml:"task_idx"`

	// Strategy: class_sequential, class_random, data_random, domain
	Strategy string `yaml:"strategy"`

	Seed int64 `yaml:"seed"`
}

// ReplayConfig shapes rehearsal from prior tasks.
type ReplayConfig struct {
	Enabled bool `yaml:"enabled"`

	// Proportion of each prior task to rehearse, in (0, 1].
	Proportion float64 `yaml:"proportion"`

	// MemoryBankSize caps the total rehearsal set across all prior
	// tasks; it wins over Proportion when both are set.
	MemoryBankSize int `yaml:"memory_bank_size"`
}

// DistillConfig shapes the training objectives.
type DistillConfig struct {
	// Lamb weights the distillation term. Zero disables it.
	Lamb float64 `yaml:"lamb"`

	// ProjHiddenDim is the predictor head's hidden width.
	ProjHiddenDim int `yaml:"proj_hidden_dim"`

	// Objective: infonce or alignment
	Objective string `yaml:"objective"`

	// Temperature for the contrastive objective.
	Temperature float64 `yaml:"temperature"`

	// LR is the base learning rate the predictor head's rate derives
	// from.
	LR float64 `yaml:"lr"`
}

type LoaderConfig struct {
	BatchSize int  `yaml:"batch_size"`
	Workers   int  `yaml:"workers"`
	Shuffle   bool `yaml:"shuffle"`
	DropLast  bool `yaml:"drop_last"`
}

type TrainConfig struct {
	Epochs int `yaml:"epochs"`

	// EmbedDim is the student's embedding width.
	EmbedDim int `yaml:"embed_dim"`

	// Drift is the per-epoch parameter drift of the built-in student.
	Drift float64 `yaml:"drift"`

	// AugmentNoise is the stddev of the view augmentation noise.
	AugmentNoise float64 `yaml:"augment_noise"`

	// RunLog is the run history database path. Empty means a file
	// under the data directory.
	RunLog string `yaml:"runlog"`
}

type PersistenceConfig struct {
	DataDir          string `yaml:"data_dir"`
	FlushIntervalSec int    `yaml:"flush_interval_sec"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Persistence.FlushIntervalSec) * time.Second
}

// RunLogPath resolves the run history database path.
func (c *Config) RunLogPath() string {
	if c.Train.RunLog != "" {
		return c.Train.RunLog
	}
	return filepath.Join(c.Persistence.DataDir, "taskline_runs.db")
}
