package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hollen/taskline/internal/config"
	"github.com/hollen/taskline/internal/data"
	"github.com/hollen/taskline/internal/split"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show how the dataset splits into tasks",
	Long: `Compute the task plan for the configured dataset and show which
samples land in which task.

Examples:
  taskline plan                 # Plan with the configured strategy
  taskline plan --json          # Machine-readable plan`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

type planTask struct {
	Task    int      `json:"task"`
	Count   int      `json:"count"`
	Classes []int    `json:"classes,omitempty"`
	Domains []string `json:"domains,omitempty"`
}

type planOutput struct {
	NumTasks int        `json:"num_tasks"`
	Strategy string     `json:"strategy"`
	Seed     int64      `json:"seed"`
	Samples  int        `json:"samples"`
	Tasks    []planTask `json:"tasks"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	ds, err := buildDataset(cfg)
	if err != nil {
		return err
	}

	plan, err := split.NewPlan(ds, split.PlanOptions{
		NumTasks: cfg.Continual.NumTasks,
		Strategy: split.Strategy(cfg.Continual.Strategy),
		Seed:     cfg.Continual.Seed,
	})
	if err != nil {
		return fmt.Errorf("failed to plan tasks: %w", err)
	}

	out := planOutput{
		NumTasks: plan.NumTasks(),
		Strategy: plan.Strategy().String(),
		Seed:     cfg.Continual.Seed,
		Samples:  ds.Len(),
	}
	for t := 0; t < plan.NumTasks(); t++ {
		idxs, err := plan.TaskIndices(t)
		if err != nil {
			return err
		}
		pt := planTask{
			Task:    t,
			Count:   len(idxs),
			Classes: taskClasses(ds, idxs),
		}
		if plan.Strategy() == split.StrategyDomain {
			pt.Domains = taskDomains(ds, idxs)
		}
		out.Tasks = append(out.Tasks, pt)
	}

	if jsonOut {
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("=== Task Plan ===\n")
	fmt.Printf("Strategy: %s (seed %d)\n", out.Strategy, out.Seed)
	fmt.Printf("Tasks: %d over %d samples\n\n", out.NumTasks, out.Samples)

	for _, pt := range out.Tasks {
		line := fmt.Sprintf("Task %d: %d samples", pt.Task, pt.Count)
		if len(pt.Domains) > 0 {
			line += fmt.Sprintf(", domains %v", pt.Domains)
		} else if len(pt.Classes) > 0 {
			line += fmt.Sprintf(", classes %v", pt.Classes)
		}
		fmt.Println(line)
	}

	return nil
}

func taskClasses(ds data.Dataset, idxs []int) []int {
	seen := make(map[int]bool)
	for _, i := range idxs {
		seen[ds.Target(i)] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

func taskDomains(ds data.Dataset, idxs []int) []string {
	seen := make(map[string]bool)
	for _, i := range idxs {
		seen[ds.Domain(i)] = true
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
