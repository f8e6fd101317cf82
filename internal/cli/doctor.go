package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollen/taskline/internal/checkpoint"
	"github.com/hollen/taskline/internal/config"
	"github.com/hollen/taskline/internal/logger"
	"github.com/hollen/taskline/internal/sysinfo"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Inspect host resources and suggest loader settings",
	Long:  `Snapshot the host's CPU, memory and data-directory disk usage.`,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorOutput struct {
	LogicalCores       int             `json:"logical_cores"`
	RecommendedWorkers int             `json:"recommended_workers"`
	MemoryUsedBytes    uint64          `json:"memory_used_bytes"`
	MemoryTotalBytes   uint64          `json:"memory_total_bytes"`
	MemoryUsedPercent  float64         `json:"memory_used_percent"`
	DataDir            string          `json:"data_dir"`
	DiskUsedBytes      uint64          `json:"disk_used_bytes,omitempty"`
	DiskTotalBytes     uint64          `json:"disk_total_bytes,omitempty"`
	DiskUsedPercent    float64         `json:"disk_used_percent,omitempty"`
	ConfiguredWorkers  int             `json:"configured_workers"`
	Student            checkpoint.Info `json:"student_checkpoint"`
	Predictor          checkpoint.Info `json:"predictor_checkpoint"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)

	snap, err := sysinfo.Collect(cfg.Persistence.DataDir)
	if err != nil {
		return fmt.Errorf("failed to inspect host: %w", err)
	}

	ckpt := checkpoint.New(cfg.Persistence.DataDir, logger.NewNop())

	out := doctorOutput{
		LogicalCores:       snap.LogicalCores,
		RecommendedWorkers: sysinfo.RecommendedWorkers(),
		MemoryUsedBytes:    snap.MemoryUsedBytes,
		MemoryTotalBytes:   snap.MemoryTotalBytes,
		MemoryUsedPercent:  snap.MemoryUsedPercent,
		DataDir:            snap.DataDir,
		DiskUsedBytes:      snap.DataDiskUsedBytes,
		DiskTotalBytes:     snap.DataDiskTotalBytes,
		DiskUsedPercent:    snap.DataDiskUsedPercent,
		ConfiguredWorkers:  cfg.Loader.Workers,
		Student:            ckpt.GetInfo(checkpoint.StudentFile),
		Predictor:          ckpt.GetInfo(checkpoint.PredictorFile),
	}

	if jsonOut {
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Println("=== Environment ===")

	fmt.Printf("\nCPU:\n")
	fmt.Printf("  Logical cores: %d\n", out.LogicalCores)

	fmt.Printf("\nMemory:\n")
	fmt.Printf("  Usage: %.1f%%\n", out.MemoryUsedPercent)
	fmt.Printf("  Total: %.1f GB\n", float64(out.MemoryTotalBytes)/1024/1024/1024)
	fmt.Printf("  Used:  %.1f GB\n", float64(out.MemoryUsedBytes)/1024/1024/1024)

	if out.DiskTotalBytes > 0 {
		free := out.DiskTotalBytes - out.DiskUsedBytes
		fmt.Printf("\nData directory (%s):\n", out.DataDir)
		fmt.Printf("  %.1f GB free / %.1f GB total\n",
			float64(free)/1024/1024/1024,
			float64(out.DiskTotalBytes)/1024/1024/1024)
	}

	fmt.Printf("\nCheckpoints:\n")
	if out.Student.Exists {
		fmt.Printf("  Student:   %d bytes, updated %s\n", out.Student.Size, out.Student.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("  Student:   none\n")
	}
	if out.Predictor.Exists {
		fmt.Printf("  Predictor: %d bytes, updated %s\n", out.Predictor.Size, out.Predictor.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("  Predictor: none\n")
	}

	fmt.Printf("\nLoader:\n")
	fmt.Printf("  Configured workers:  %d\n", out.ConfiguredWorkers)
	fmt.Printf("  Recommended workers: %d\n", out.RecommendedWorkers)
	if out.ConfiguredWorkers > out.RecommendedWorkers {
		fmt.Printf("  Note: configured workers exceed the recommendation for this host\n")
	}

	return nil
}
