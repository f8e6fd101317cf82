package config

import (
	"github.com/hollen/taskline/internal/loader"
	"github.com/hollen/taskline/internal/prepare"
	"github.com/hollen/taskline/internal/replay"
	"github.com/hollen/taskline/internal/split"
)

// PrepareOptions maps the config onto a preparation request.
func (c *Config) PrepareOptions() prepare.Options {
	opts := prepare.Options{
		Source:   prepare.Source(c.Continual.Source),
		NumTasks: c.Continual.NumTasks,
		Strategy: split.Strategy(c.Continual.Strategy),
		Seed:     c.Continual.Seed,
		TaskIdx:  c.Continual.TaskIdx,
		Replay:   c.Replay.Enabled,
	}

	if c.Replay.Enabled {
		opts.Budget = replay.Budget{
			Proportion: c.Replay.Proportion,
			NumSamples: c.Replay.MemoryBankSize,
		}
	}

	if c.SemiSupervised != nil {
		f := *c.SemiSupervised
		opts.SemiSupervised = &f
	}

	return opts
}

// LoaderOptions maps the config onto batch loader options. The loader
// shares the continual seed so one seed pins the whole pipeline.
func (c *Config) LoaderOptions() loader.Options {
	return loader.Options{
		BatchSize: c.Loader.BatchSize,
		Shuffle:   c.Loader.Shuffle,
		DropLast:  c.Loader.DropLast,
		Seed:      c.Continual.Seed,
		Workers:   c.Loader.Workers,
	}
}
