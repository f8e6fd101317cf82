package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollen/taskline/internal/config"
	"github.com/hollen/taskline/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded training runs",
	Long: `Query the run history database for past training runs.

Examples:
  taskline runs                                      # List recent runs
  taskline runs 7c9e6679-7425-40de-944b-e07fc1f90ae7 # One run's task records`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}

type runView struct {
	ID         string  `json:"id"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at,omitempty"`
	Dataset    string  `json:"dataset"`
	NumTasks   int     `json:"num_tasks"`
	Strategy   string  `json:"strategy"`
	Source     string  `json:"source"`
	Seed       int64   `json:"seed"`
	Lamb       float64 `json:"lamb"`
}

type taskView struct {
	Task          int     `json:"task"`
	TrainSamples  int     `json:"train_samples"`
	ReplaySamples int     `json:"replay_samples"`
	Epochs        int     `json:"epochs"`
	PrimaryLoss   float64 `json:"primary_loss"`
	DistillLoss   float64 `json:"distill_loss"`
	TotalLoss     float64 `json:"total_loss"`
	DurationMS    int64   `json:"duration_ms"`
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	rl, err := runlog.Open(cfg.RunLogPath())
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer rl.Close()

	if len(args) == 1 {
		return showRun(rl, args[0])
	}
	return listRuns(rl)
}

func listRuns(rl *runlog.Log) error {
	runs, err := rl.Runs(runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOut {
		views := make([]runView, 0, len(runs))
		for _, r := range runs {
			views = append(views, toRunView(r))
		}
		encoded, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("=== Training Runs ===\n\n")

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		state := "active"
		if r.Finished() {
			state = fmt.Sprintf("done in %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
		}
		fmt.Printf("%s\n", r.ID)
		fmt.Printf("  started %s, %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), state)
		fmt.Printf("  %s, %d tasks, %s/%s, seed %d, lamb %g\n\n",
			r.Dataset, r.NumTasks, r.Strategy, r.Source, r.Seed, r.Lamb)
	}

	return nil
}

func showRun(rl *runlog.Log, id string) error {
	run, err := rl.Run(id)
	if err != nil {
		return err
	}
	entries, err := rl.TaskEntries(id)
	if err != nil {
		return err
	}

	if jsonOut {
		out := struct {
			Run   runView    `json:"run"`
			Tasks []taskView `json:"tasks"`
		}{Run: toRunView(*run)}
		for _, e := range entries {
			out.Tasks = append(out.Tasks, taskView{
				Task:          e.TaskIdx,
				TrainSamples:  e.TrainSamples,
				ReplaySamples: e.ReplaySamples,
				Epochs:        e.Epochs,
				PrimaryLoss:   e.PrimaryLoss,
				DistillLoss:   e.DistillLoss,
				TotalLoss:     e.TotalLoss,
				DurationMS:    e.Duration.Milliseconds(),
			})
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("=== Run %s ===\n", run.ID)
	fmt.Printf("Started: %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Finished() {
		fmt.Printf("Finished: %s (%s)\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	fmt.Printf("Dataset: %s, %d tasks, %s/%s, seed %d, lamb %g\n\n",
		run.Dataset, run.NumTasks, run.Strategy, run.Source, run.Seed, run.Lamb)

	if len(entries) == 0 {
		fmt.Println("No tasks recorded yet.")
		return nil
	}

	fmt.Printf("%-5s │ %7s │ %7s │ %8s │ %8s │ %8s │ %8s\n",
		"Task", "Train", "Replay", "Primary", "Distill", "Total", "Duration")
	for _, e := range entries {
		fmt.Printf("%-5d │ %7d │ %7d │ %8.4f │ %8.4f │ %8.4f │ %8s\n",
			e.TaskIdx, e.TrainSamples, e.ReplaySamples,
			e.PrimaryLoss, e.DistillLoss, e.TotalLoss,
			e.Duration.Round(time.Millisecond))
	}

	return nil
}

func toRunView(r runlog.Run) runView {
	v := runView{
		ID:        r.ID,
		StartedAt: r.StartedAt.Format(time.RFC3339),
		Dataset:   r.Dataset,
		NumTasks:  r.NumTasks,
		Strategy:  r.Strategy,
		Source:    r.Source,
		Seed:      r.Seed,
		Lamb:      r.Lamb,
	}
	if r.Finished() {
		v.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return v
}
