package stats

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo describes the host and the server process.
type SystemInfo struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform,omitempty"`
	PlatformVersion string  `json:"platform_version,omitempty"`
	KernelVersion   string  `json:"kernel_version,omitempty"`
	HostUptime      uint64  `json:"host_uptime_seconds"`
	CPUCount        int     `json:"cpu_count"`
	CPUPercent      float64 `json:"cpu_percent"`
	Load1           float64 `json:"load1"`
	Load5           float64 `json:"load5"`
	Load15          float64 `json:"load15"`
	MemTotal        uint64  `json:"mem_total_bytes"`
	MemUsed         uint64  `json:"mem_used_bytes"`
	MemUsedPercent  float64 `json:"mem_used_percent"`

	ProcessRSS        uint64  `json:"process_rss_bytes"`
	ProcessCPUPercent float64 `json:"process_cpu_percent"`
	ProcessThreads    int32   `json:"process_threads"`
	Goroutines        int     `json:"goroutines"`
	GoVersion         string  `json:"go_version"`
	Uptime            float64 `json:"uptime_seconds"`

	Services []service.Descriptor `json:"services"`
	Warnings []string             `json:"warnings,omitempty"`
}

// System probes the host. Probes that fail, as some do inside containers,
// are reported as warnings instead of failing the whole view.
func (s *Service) System(ctx context.Context) SystemInfo {
	info := SystemInfo{
		OS:         runtime.GOOS,
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
		Uptime:     s.now().Sub(s.started).Seconds(),
		Services:   append([]service.Descriptor{}, s.descriptors...),
	}
	warn := func(probe string, err error) {
		info.Warnings = append(info.Warnings, probe+": "+err.Error())
	}

	if h, err := host.InfoWithContext(ctx); err != nil {
		warn("host", err)
	} else {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
		info.HostUptime = h.Uptime
	}
	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		warn("cpu count", err)
	} else {
		info.CPUCount = n
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		warn("cpu percent", err)
	} else if len(pct) > 0 {
		info.CPUPercent = pct[0]
	}
	if avg, err := load.AvgWithContext(ctx); err != nil {
		warn("load", err)
	} else {
		info.Load1, info.Load5, info.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		warn("memory", err)
	} else {
		info.MemTotal = vm.Total
		info.MemUsed = vm.Used
		info.MemUsedPercent = vm.UsedPercent
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		warn("process", err)
		return info
	}
	if mi, err := proc.MemoryInfoWithContext(ctx); err != nil {
		warn("process memory", err)
	} else {
		info.ProcessRSS = mi.RSS
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err != nil {
		warn("process cpu", err)
	} else {
		info.ProcessCPUPercent = pct
	}
	if n, err := proc.NumThreadsWithContext(ctx); err != nil {
		warn("process threads", err)
	} else {
		info.ProcessThreads = n
	}
	return info
}

// StartedAt reports when the service was created.
func (s *Service) StartedAt() time.Time { return s.started }
