package collectors

import (
	"context"
	"os/user"

	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const gib = 1 << 30

// SystemInfo summarises the host. Fields that cannot be read are left as "Unknown"
// or zero rather than failing the whole summary.
func SystemInfo(ctx context.Context, isAdmin bool) domain.SystemInfo {
	info := domain.SystemInfo{
		OSVersion:    "Unknown",
		ComputerName: "Unknown",
		Username:     "Unknown",
		IsAdmin:      isAdmin,
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.ComputerName = h.Hostname
		info.OSVersion = h.Platform + " " + h.PlatformVersion
		if h.KernelVersion != "" {
			info.OSVersion += " (" + h.KernelVersion + ")"
		}
	}
	if u, err := user.Current(); err == nil {
		info.Username = u.Username
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUInfo = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemoryGB = float64(vm.Total) / gib
		info.AvailableMemoryGB = float64(vm.Available) / gib
	}
	return info
}
