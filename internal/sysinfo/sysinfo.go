// Package sysinfo takes one-shot snapshots of the host resources that
// bound data loading concurrency.
package sysinfo

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot captures the host state relevant to a training run.
type Snapshot struct {
	LogicalCores int

	MemoryUsedBytes   uint64
	MemoryTotalBytes  uint64
	MemoryUsedPercent float64

	// Disk usage of the data directory. Zero when the path could not
	// be inspected.
	DataDir             string
	DataDiskUsedBytes   uint64
	DataDiskTotalBytes  uint64
	DataDiskUsedPercent float64
}

// Collect snapshots CPU, memory and the data directory's disk usage.
func Collect(dataDir string) (*Snapshot, error) {
	cores, err := cpu.Counts(true)
	if err != nil {
		return nil, err
	}

	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		LogicalCores:      cores,
		MemoryUsedBytes:   v.Used,
		MemoryTotalBytes:  v.Total,
		MemoryUsedPercent: v.UsedPercent,
		DataDir:           dataDir,
	}

	if dataDir != "" {
		if usage, err := disk.Usage(dataDir); err == nil {
			s.DataDiskUsedBytes = usage.Used
			s.DataDiskTotalBytes = usage.Total
			s.DataDiskUsedPercent = usage.UsedPercent
		}
	}

	return s, nil
}

// RecommendedWorkers sizes a loader worker pool from the core count,
// leaving one core for the training loop itself. At least one worker,
// at most eight; more rarely pays for itself on batch prefetch.
func RecommendedWorkers() int {
	cores, err := cpu.Counts(true)
	if err != nil || cores <= 1 {
		return 1
	}

	workers := cores - 1
	if workers > 8 {
		workers = 8
	}
	return workers
}
