package monitoring

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemSnapshot is a point-in-time view of host and process resources.
type SystemSnapshot struct {
	CPUCount      int     `json:"cpuCount"`
	MemoryTotal   uint64  `json:"memoryTotal"`
	MemoryUsed    uint64  `json:"memoryUsed"`
	MemoryPercent float64 `json:"memoryPercent"`
	ProcessRSS    uint64  `json:"processRss"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
}

var startedAt = time.Now()

// Snapshot gathers a SystemSnapshot. Host metrics that cannot be read are
// left zero; the snapshot itself never fails.
func Snapshot(ctx context.Context) SystemSnapshot {
	snap := SystemSnapshot{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUCount = n
	} else {
		snap.CPUCount = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryTotal = vm.Total
		snap.MemoryUsed = vm.Used
		snap.MemoryPercent = vm.UsedPercent
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			snap.ProcessRSS = info.RSS
		}
	}
	return snap
}
