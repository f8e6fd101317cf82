package config

func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Name:            "synthetic",
			Classes:         10,
			SamplesPerClass: 100,
			Dim:             32,
		},
		Continual: ContinualConfig{
			Source:   "current_task",
			NumTasks: 5,
			TaskIdx:  0,
			Strategy: "class_sequential",
			Seed:     42,
		},
		Replay: ReplayConfig{
			Enabled:        false,
			Proportion:     0,
			MemoryBankSize: 0,
		},
		SemiSupervised: nil,
		Distill: DistillConfig{
			Lamb:          1.0,
			ProjHiddenDim: 64,
			Objective:     "infonce",
			Temperature:   0.5,
			LR:            0.03,
		},
		Loader: LoaderConfig{
			BatchSize: 32,
			Workers:   0,
			Shuffle:   true,
			DropLast:  false,
		},
		Train: TrainConfig{
			Epochs:       1,
			EmbedDim:     32,
			Drift:        0.01,
			AugmentNoise: 0.1,
			RunLog:       "",
		},
		Persistence: PersistenceConfig{
			DataDir:          "/var/lib/taskline",
			FlushIntervalSec: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
