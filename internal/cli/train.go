package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hollen/taskline/internal/checkpoint"
	"github.com/hollen/taskline/internal/cli/tui"
	"github.com/hollen/taskline/internal/config"
	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/distill"
	"github.com/hollen/taskline/internal/logger"
	"github.com/hollen/taskline/internal/replay"
	"github.com/hollen/taskline/internal/runlog"
	"github.com/hollen/taskline/internal/train"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the continual training stream",
	Long: `Walk the task stream in foreground mode: prepare each task's subset,
train the student on it, then freeze the student as the next task's
distillation teacher.

Examples:
  taskline train                # Train with the configured settings
  taskline train --watch        # Live progress in a terminal UI
  taskline train --start-task 3 # Resume partway through the stream`,
	RunE: runTrain,
}

var (
	trainWatch     bool
	trainStartTask int
	trainEpochs    int
	trainLamb      float64
)

func init() {
	trainCmd.Flags().BoolVar(&trainWatch, "watch", false, "show live progress in a terminal UI")
	trainCmd.Flags().IntVar(&trainStartTask, "start-task", 0, "resume the stream at this task")
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 0, "override epochs per task")
	trainCmd.Flags().Float64Var(&trainLamb, "lamb", 0, "override the distillation weight")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	// Load config
	cfg := config.LoadOrDefault(cfgFile)

	// Override via flags if specified
	if cmd.Flags().Changed("epochs") {
		cfg.Train.Epochs = trainEpochs
	}
	if cmd.Flags().Changed("lamb") {
		cfg.Distill.Lamb = trainLamb
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	// Create logger; the terminal UI owns the screen in watch mode.
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if trainWatch {
		log = logger.NewNop()
	}

	log.Info("taskline starting",
		"version", Version,
		"config", cfgFile,
	)

	ds, err := buildDataset(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay bank, persisted across runs when replay is on. Draws made
	// under a different seed index a different shuffle, so they are
	// discarded rather than replayed.
	var (
		pool *replay.Pool
		bank *replay.Store
	)
	if cfg.Replay.Enabled {
		bank = replay.NewStore(cfg.Persistence.DataDir, cfg.FlushInterval(), log)
		if err := bank.Load(); err != nil {
			log.Warn("failed to load replay bank", "error", err)
		}
		if s := bank.Seed(); s != 0 && s != cfg.Continual.Seed {
			log.Warn("replay bank was drawn under a different seed, starting fresh",
				"stored_seed", s,
				"run_seed", cfg.Continual.Seed,
			)
			pool = replay.NewPool()
		} else {
			pool = bank.Restore()
		}
		bank.SetSeed(cfg.Continual.Seed)
		if pool.Len() > 0 {
			log.Info("restored replay bank",
				"tasks", bank.TaskCount(),
				"samples", pool.Len(),
			)
		}
		bank.Start(ctx)
	}

	// Run history
	history, err := runlog.Open(cfg.RunLogPath())
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer history.Close()

	runID, err := history.CreateRun(runlog.RunMeta{
		Dataset:  cfg.Dataset.Name,
		NumTasks: cfg.Continual.NumTasks,
		Strategy: cfg.Continual.Strategy,
		Source:   cfg.Continual.Source,
		Seed:     cfg.Continual.Seed,
		Lamb:     cfg.Distill.Lamb,
	})
	if err != nil {
		return fmt.Errorf("failed to register run: %w", err)
	}
	log.Info("run registered", "run_id", runID)

	// The student's input width follows the data, not the config, so
	// manifest datasets with embedded vectors work unchanged.
	inDim := cfg.Dataset.Dim
	if vs, ok := ds.(data.VectorSource); ok && ds.Len() > 0 {
		if v := vs.Vector(0); v != nil {
			inDim = len(v)
		}
	}

	student, err := train.NewRandomProjection(inDim, cfg.Train.EmbedDim, cfg.Continual.Seed)
	if err != nil {
		return err
	}
	augmenter := train.NewGaussianAugmenter(cfg.Continual.Seed, cfg.Train.AugmentNoise)

	primary, err := train.NewObjective(train.ObjectiveType(cfg.Distill.Objective), cfg.Distill.Temperature)
	if err != nil {
		return err
	}
	predictor, err := distill.NewPredictor(cfg.Train.EmbedDim, cfg.Distill.ProjHiddenDim, cfg.Continual.Seed)
	if err != nil {
		return err
	}
	distiller, err := distill.New(predictor, cfg.Distill.Lamb)
	if err != nil {
		return err
	}

	log.Info("objectives ready",
		"primary", primary.Name(),
		"lamb", cfg.Distill.Lamb,
		"predictor_lr", distill.PredictorLR(cfg.Distill.LR, cfg.Distill.Lamb),
	)

	// Resuming partway restores the models the previous run saved; a
	// fresh run clears them so stale state cannot leak into a later
	// resume.
	ckpt := checkpoint.New(cfg.Persistence.DataDir, log)
	if trainStartTask > 0 {
		if !ckpt.Exists(checkpoint.StudentFile) {
			log.Warn("no saved student to resume from, starting from seed")
		}
		if err := ckpt.Load(checkpoint.StudentFile, student); err != nil {
			return err
		}
		if err := ckpt.Load(checkpoint.PredictorFile, predictor); err != nil {
			return err
		}
	} else {
		if err := ckpt.Delete(checkpoint.StudentFile); err != nil {
			log.Warn("failed to clear student checkpoint", "error", err)
		}
		if err := ckpt.Delete(checkpoint.PredictorFile); err != nil {
			log.Warn("failed to clear predictor checkpoint", "error", err)
		}
	}

	eng, err := train.NewEngine(train.EngineOptions{
		Dataset:    ds,
		Prepare:    cfg.PrepareOptions(),
		Loader:     cfg.LoaderOptions(),
		Epochs:     cfg.Train.Epochs,
		StartTask:  trainStartTask,
		Drift:      cfg.Train.Drift,
		Student:    student,
		Augmenter:  augmenter,
		Objectives: []train.Objective{primary, distiller},
		Pool:       pool,
		Store:      bank,
		Recorder:   &runRecorder{history: history, runID: runID},
		Logger:     log,
	})
	if err != nil {
		return err
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Lifecycle events block until consumed, so the engine runs in the
	// background and this goroutine drains the stream.
	errCh := make(chan error, 1)
	go func() {
		errCh <- eng.Run(ctx)
	}()

	var uiErr error
	if trainWatch {
		uiErr = tui.Run(tui.Config{Events: eng.Events(), Version: Version})
		cancel()
	}
	for range eng.Events() {
	}
	runErr := <-errCh

	interrupted := errors.Is(runErr, context.Canceled)
	switch {
	case runErr == nil:
		if err := history.FinishRun(runID); err != nil {
			log.Warn("failed to stamp run finish", "error", err)
		}
		log.Info("training complete", "run_id", runID)
	case interrupted:
		log.Info("training interrupted", "run_id", runID)
		runErr = nil
	default:
		log.Error("training failed", "run_id", runID, "error", runErr)
	}

	// Checkpoint finished and interrupted runs; both can be resumed.
	if runErr == nil {
		if err := ckpt.Save(checkpoint.StudentFile, student); err != nil {
			log.Warn("failed to save student checkpoint", "error", err)
		}
		if err := ckpt.Save(checkpoint.PredictorFile, predictor); err != nil {
			log.Warn("failed to save predictor checkpoint", "error", err)
		}
	}

	if bank != nil {
		if err := bank.Stop(); err != nil {
			log.Error("replay bank shutdown error", "error", err)
		}
	}

	if uiErr != nil {
		return fmt.Errorf("terminal UI error: %w", uiErr)
	}

	// The watch UI swallows the logs, so leave a trace on exit.
	if trainWatch && runErr == nil {
		if interrupted {
			fmt.Printf("Training interrupted. Run %s is partial.\n", runID)
		} else {
			fmt.Printf("Training complete. Inspect the run with: taskline runs %s\n", runID)
		}
	}
	return runErr
}

// runRecorder adapts the run history database to the engine's Recorder.
type runRecorder struct {
	history *runlog.Log
	runID   string
}

func (r *runRecorder) RecordTask(rec train.TaskRecord) error {
	return r.history.RecordTask(r.runID, runlog.TaskEntry{
		TaskIdx:       rec.TaskIdx,
		TrainSamples:  rec.TrainSamples,
		ReplaySamples: rec.ReplaySamples,
		Epochs:        rec.Epochs,
		PrimaryLoss:   rec.PrimaryLoss,
		DistillLoss:   rec.DistillLoss,
		TotalLoss:     rec.TotalLoss,
		Duration:      rec.Duration,
	})
}
