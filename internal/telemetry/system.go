// Package telemetry reports the host facts the Submitter attaches to every
// proof submission: estimated FLOPS, process/system memory, and location.
package telemetry

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// assumedClockHz and flopsPerCyclePerCore mirror the estimate used upstream:
// 4 floating-point operations per cycle at an assumed 2 GHz clock.
const (
	assumedClockHz       = 2.0e9
	flopsPerCyclePerCore = 4.0
)

// NumCores returns the number of logical cores available to the process,
// falling back to 1 if detection fails.
func NumCores() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// EstimatePeakGFLOPS estimates peak throughput in GFLOP/s for numProvers
// concurrent prover threads.
func EstimatePeakGFLOPS(numProvers int) float64 {
	peakFlops := float64(numProvers) * flopsPerCyclePerCore * assumedClockHz
	return peakFlops / 1e9
}

// Snapshot is the host telemetry attached to a NodeTelemetry wire message.
type Snapshot struct {
	FlopsPerSec  float64
	MemoryUsedMB int32
	MemoryCapMB  int32
	Location     string
}

// Measure gathers a telemetry Snapshot for the current process. Errors
// reading host metrics are non-fatal: the affected field is left at zero
// rather than blocking submission.
func Measure(numProvers int) Snapshot {
	snap := Snapshot{
		FlopsPerSec: EstimatePeakGFLOPS(numProvers) * 1e9,
		Location:    "",
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryCapMB = bytesToMB(vm.Total)
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			snap.MemoryUsedMB = bytesToMB(info.RSS)
		}
	}

	return snap
}

func bytesToMB(b uint64) int32 {
	return int32((float64(b) * 1000.0 / 1_048_576.0) + 0.5)
}
