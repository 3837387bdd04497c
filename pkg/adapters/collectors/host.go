package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

const dmiDir = "/sys/class/dmi/id"

// HostInfo gathers host identity and uptime.
func HostInfo(ctx context.Context) (any, error) {
	return host.InfoWithContext(ctx)
}

// OperatingSystem gathers platform, family, version and kernel details.
func OperatingSystem(ctx context.Context) (any, error) {
	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return nil, err
	}
	kernel, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"platform":       platform,
		"family":         family,
		"version":        version,
		"kernel_version": kernel,
		"kernel_arch":    runtime.GOARCH,
	}, nil
}

// Processor gathers CPU models and core counts.
func Processor(ctx context.Context) (any, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"physical_cores": physical,
		"logical_cores":  logical,
		"cpus":           infos,
	}, nil
}

// PhysicalMemory gathers RAM and swap usage.
func PhysicalMemory(ctx context.Context) (any, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"virtual": vm, "swap": swap}, nil
}

// DiskDrives gathers per device I/O counters.
func DiskDrives(ctx context.Context) (any, error) {
	return disk.IOCountersWithContext(ctx)
}

// DiskPartitions gathers mounted partitions with their usage.
func DiskPartitions(ctx context.Context) (any, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	type partition struct {
		disk.PartitionStat `yaml:",inline"`
		Usage              *disk.UsageStat `yaml:"usage,omitempty"`
	}
	out := make([]partition, 0, len(parts))
	for _, p := range parts {
		// pseudo and unreadable mounts have no usage
		u, _ := disk.UsageWithContext(ctx, p.Mountpoint)
		out = append(out, partition{PartitionStat: p, Usage: u})
	}
	return out, nil
}

// NetworkAdapters gathers interfaces and their counters.
func NetworkAdapters(ctx context.Context) (any, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	return map[string]any{"interfaces": ifaces, "counters": counters}, nil
}

// Environment gathers the process environment, sorted.
func Environment(context.Context) (any, error) {
	env := os.Environ()
	sort.Strings(env)
	return env, nil
}

type processInfo struct {
	PID        int32   `yaml:"pid"`
	Name       string  `yaml:"name"`
	CPUPercent float64 `yaml:"cpu_percent"`
	MemoryKB   uint64  `yaml:"memory_kb"`
}

// Processes gathers the running processes. Processes that vanish while being
// read are skipped.
func Processes(ctx context.Context) (any, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]processInfo, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		info := processInfo{PID: p.Pid, Name: name}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = pct
		}
		if m, err := p.MemoryInfoWithContext(ctx); err == nil && m != nil {
			info.MemoryKB = m.RSS / 1024
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// PerformanceData samples per CPU utilisation over one second plus load averages.
func PerformanceData(ctx context.Context) (any, error) {
	pct, err := cpu.PercentWithContext(ctx, time.Second, true)
	if err != nil {
		return nil, err
	}
	data := map[string]any{"cpu_percent": pct}
	// load averages are not available on every platform
	if avg, err := load.AvgWithContext(ctx); err == nil {
		data["load"] = avg
	}
	return data, nil
}

// DMI returns a GatherFunc reading every /sys/class/dmi/id entry starting with prefix.
func DMI(prefix string) GatherFunc {
	return func(ctx context.Context) (any, error) {
		entries, err := os.ReadDir(dmiDir)
		if err != nil {
			return nil, err
		}
		out := map[string]string{}
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			b, err := os.ReadFile(filepath.Join(dmiDir, e.Name()))
			if err != nil {
				// serials are root-only
				continue
			}
			out[e.Name()] = strings.TrimSpace(string(b))
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no %s* entries in %s", prefix, dmiDir)
		}
		return out, nil
	}
}
