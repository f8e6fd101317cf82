package config

import (
	"errors"
	"fmt"

	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/prepare"
	"github.com/hollen/taskline/internal/split"
	"github.com/hollen/taskline/internal/train"
)

func (c *Config) Validate() error {
	var errs []error

	if err := c.Dataset.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("dataset: %w", err))
	}

	if err := c.Continual.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("continual: %w", err))
	}

	if err := c.Replay.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("replay: %w", err))
	}

	if err := c.validateSemiSupervised(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Distill.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("distill: %w", err))
	}

	if err := c.Loader.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("loader: %w", err))
	}

	if err := c.Train.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("train: %w", err))
	}

	if err := c.Persistence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("persistence: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.validateReplaySource(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (d *DatasetConfig) Validate() error {
	switch d.Name {
	case "synthetic":
		var errs []error
		if d.Classes < 1 {
			errs = append(errs, fmt.Errorf("%w: classes must be at least 1, got %d", data.ErrConfig, d.Classes))
		}
		if d.SamplesPerClass < 1 {
			errs = append(errs, fmt.Errorf("%w: samples_per_class must be at least 1, got %d", data.ErrConfig, d.SamplesPerClass))
		}
		if d.Dim < 1 {
			errs = append(errs, fmt.Errorf("%w: dim must be at least 1, got %d", data.ErrConfig, d.Dim))
		}
		return errors.Join(errs...)
	case "manifest":
		if d.Manifest == "" {
			return fmt.Errorf("%w: manifest path cannot be empty", data.ErrConfig)
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid dataset name: %s (valid: synthetic, manifest)", data.ErrConfig, d.Name)
	}
}

func (c *ContinualConfig) Validate() error {
	var errs []error

	if !prepare.Source(c.Source).IsValid() {
		errs = append(errs, fmt.Errorf("%w: invalid source: %s (valid: all_tasks, current_task, seen_tasks)", data.ErrConfig, c.Source))
	}

	if c.NumTasks < 1 {
		errs = append(errs, fmt.Errorf("%w: num_tasks must be at least 1, got %d", data.ErrConfig, c.NumTasks))
	}

	if c.TaskIdx < 0 || (c.NumTasks >= 1 && c.TaskIdx >= c.NumTasks) {
		errs = append(errs, fmt.Errorf("%w: task_idx must be in [0, %d), got %d", data.ErrConfig, c.NumTasks, c.TaskIdx))
	}

	if !split.Strategy(c.Strategy).IsValid() {
		errs = append(errs, fmt.Errorf("%w: invalid strategy: %s (valid: class_sequential, class_random, data_random, domain)", data.ErrConfig, c.Strategy))
	}

	return errors.Join(errs...)
}

func (r *ReplayConfig) Validate() error {
	var errs []error

	if r.Proportion < 0 || r.Proportion > 1 {
		errs = append(errs, fmt.Errorf("%w: proportion must be in [0, 1], got %v", data.ErrConfig, r.Proportion))
	}

	if r.MemoryBankSize < 0 {
		errs = append(errs, fmt.Errorf("%w: memory_bank_size must be non-negative, got %d", data.ErrConfig, r.MemoryBankSize))
	}

	if r.Enabled && r.Proportion == 0 && r.MemoryBankSize == 0 {
		errs = append(errs, fmt.Errorf("%w: replay is enabled but neither proportion nor memory_bank_size is set", data.ErrConfig))
	}

	return errors.Join(errs...)
}

func (c *Config) validateSemiSupervised() error {
	if c.SemiSupervised == nil {
		return nil
	}
	f := *c.SemiSupervised
	if f <= 0 || f > 1 {
		return fmt.Errorf("%w: semi_supervised must be in (0, 1], got %v", data.ErrConfig, f)
	}
	return nil
}

func (d *DistillConfig) Validate() error {
	var errs []error

	if d.Lamb < 0 {
		errs = append(errs, fmt.Errorf("%w: lamb must be non-negative, got %v", data.ErrConfig, d.Lamb))
	}

	if d.ProjHiddenDim < 1 {
		errs = append(errs, fmt.Errorf("%w: proj_hidden_dim must be at least 1, got %d", data.ErrConfig, d.ProjHiddenDim))
	}

	if !train.ObjectiveType(d.Objective).IsValid() {
		errs = append(errs, fmt.Errorf("%w: invalid objective: %s (valid: infonce, alignment)", data.ErrConfig, d.Objective))
	}

	if d.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("%w: temperature must be positive, got %v", data.ErrConfig, d.Temperature))
	}

	if d.LR <= 0 {
		errs = append(errs, fmt.Errorf("%w: lr must be positive, got %v", data.ErrConfig, d.LR))
	}

	return errors.Join(errs...)
}

func (l *LoaderConfig) Validate() error {
	var errs []error

	if l.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be at least 1, got %d", data.ErrConfig, l.BatchSize))
	}

	if l.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be non-negative, got %d", data.ErrConfig, l.Workers))
	}

	return errors.Join(errs...)
}

func (t *TrainConfig) Validate() error {
	var errs []error

	if t.Epochs < 1 {
		errs = append(errs, fmt.Errorf("%w: epochs must be at least 1, got %d", data.ErrConfig, t.Epochs))
	}

	if t.EmbedDim < 1 {
		errs = append(errs, fmt.Errorf("%w: embed_dim must be at least 1, got %d", data.ErrConfig, t.EmbedDim))
	}

	if t.Drift < 0 {
		errs = append(errs, fmt.Errorf("%w: drift must be non-negative, got %v", data.ErrConfig, t.Drift))
	}

	if t.AugmentNoise < 0 {
		errs = append(errs, fmt.Errorf("%w: augment_noise must be non-negative, got %v", data.ErrConfig, t.AugmentNoise))
	}

	return errors.Join(errs...)
}

func (p *PersistenceConfig) Validate() error {
	if p.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", data.ErrConfig)
	}
	if p.FlushIntervalSec < 1 {
		return fmt.Errorf("%w: flush_interval_sec must be at least 1", data.ErrConfig)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("%w: invalid log level: %s (valid: debug, info, warn, error)", data.ErrConfig, l.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("%w: invalid log format: %s (valid: json, text)", data.ErrConfig, l.Format)
	}

	return nil
}

// Training on everything leaves nothing to rehearse.
func (c *Config) validateReplaySource() error {
	if c.Replay.Enabled && prepare.Source(c.Continual.Source) == prepare.SourceAllTasks {
		return fmt.Errorf("%w: replay cannot be combined with the all_tasks source", data.ErrConfig)
	}
	return nil
}
