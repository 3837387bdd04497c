package catalog

import (
	"time"

	"github.com/aescanero/wfdiag/pkg/adapters/collectors"
	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

const (
	CategorySystem   = "System"
	CategoryHardware = "Hardware"
	CategoryNetwork  = "Network"
	CategoryStorage  = "Storage"
	CategoryServices = "Services"
	CategoryLogs     = "Logs"
	CategoryDrivers  = "Drivers"
	CategoryOther    = "Other"
)

func task(name, category, description string, c ports.Collector) Entry {
	return Entry{
		Descriptor: domain.TaskDescriptor{
			ID:          domain.TaskID(name),
			Name:        name,
			Description: description,
			Category:    category,
		},
		Collector: c,
	}
}

func timedTask(name, category, description string, timeout time.Duration, c ports.Collector) Entry {
	e := task(name, category, description, c)
	e.Timeout = timeout
	return e
}

func adminTask(name, category, description string, timeout time.Duration, c ports.Collector) Entry {
	e := timedTask(name, category, description, timeout, c)
	e.Descriptor.AdminRequired = true
	return e
}

func probe(output string, fn collectors.GatherFunc) collectors.Probe {
	return collectors.Probe{Output: output, Gather: fn}
}

func cmd(output string, args ...string) collectors.Command {
	return collectors.Command{Args: args, Output: output}
}

func powershell(output, script string) collectors.Command {
	return cmd(output, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// cim queries a CIM class on Windows.
func cim(class, output string) collectors.Command {
	return powershell(output, "Get-CimInstance -ClassName "+class+" | Format-List *")
}

func windowsOnly(c ports.Collector) collectors.ByOS {
	return collectors.ByOS{"windows": c}
}

// Default returns the built-in catalog. Portable probes use gopsutil; Windows
// tools run only on Windows and fail as unsupported elsewhere.
func Default() *Catalog {
	return MustNew(
		task("Computer System", CategorySystem, "Hardware and system information",
			probe("ComputerSystem.yaml", collectors.HostInfo)),
		task("Operating System", CategorySystem, "Operating system version and configuration",
			probe("OperatingSystem.yaml", collectors.OperatingSystem)),
		task("BIOS", CategorySystem, "Firmware and boot settings", collectors.ByOS{
			"windows": cim("Win32_BIOS", "BIOS.txt"),
			"linux":   probe("BIOS.yaml", collectors.DMI("bios_")),
		}),
		task("BaseBoard", CategorySystem, "Motherboard specifications", collectors.ByOS{
			"windows": cim("Win32_BaseBoard", "BaseBoard.txt"),
			"linux":   probe("BaseBoard.yaml", collectors.DMI("board_")),
		}),
		task("Processor", CategoryHardware, "CPU details and capabilities",
			probe("Processor.yaml", collectors.Processor)),
		task("Physical Memory", CategoryHardware, "RAM configuration and usage",
			probe("PhysicalMemory.yaml", collectors.PhysicalMemory)),
		task("Device Memory Address", CategoryHardware, "Device memory address ranges", collectors.ByOS{
			"windows": cim("Win32_DeviceMemoryAddress", "DevMemAddr.txt"),
			"linux":   collectors.CopyFile{Source: "/proc/iomem", Output: "DevMemAddr.txt"},
		}),
		task("DMA Channel", CategoryHardware, "DMA channel assignments", collectors.ByOS{
			"windows": cim("Win32_DMAChannel", "DMAChannel.txt"),
			"linux":   collectors.CopyFile{Source: "/proc/dma", Output: "DMAChannel.txt"},
		}),
		task("IRQ Resource", CategoryHardware, "Interrupt request assignments", collectors.ByOS{
			"windows": cim("Win32_IRQResource", "IRQResource.txt"),
			"linux":   collectors.CopyFile{Source: "/proc/interrupts", Output: "IRQResource.txt"},
		}),
		task("Disk Drive", CategoryStorage, "Storage devices and I/O counters",
			probe("DiskDrive.yaml", collectors.DiskDrives)),
		task("Disk Partition", CategoryStorage, "Partitions and space usage",
			probe("DiskPartition.yaml", collectors.DiskPartitions)),
		task("System Devices", CategoryHardware, "Devices attached to the system", collectors.ByOS{
			"windows": cim("Win32_SystemDevices", "SysDevices.txt"),
			"linux":   cmd("SysDevices.txt", "lspci", "-mm"),
		}),
		task("Network Adapter", CategoryNetwork, "Network interfaces and settings",
			probe("NetworkAdapter.yaml", collectors.NetworkAdapters)),
		task("Printer", CategoryOther, "Installed printers", collectors.ByOS{
			"windows": cim("Win32_Printer", "Printer.txt"),
			"*":       cmd("Printer.txt", "lpstat", "-a"),
		}),
		task("Environment", CategorySystem, "Environment variables",
			probe("Environment.yaml", collectors.Environment)),
		task("Startup Command", CategoryServices, "Programs started at boot or logon", collectors.ByOS{
			"windows": cim("Win32_StartupCommand", "StartupCmd.txt"),
			"linux":   cmd("StartupCmd.txt", "systemctl", "list-unit-files", "--state=enabled", "--no-pager"),
		}),
		task("System Driver", CategoryDrivers, "Kernel drivers and modules", collectors.ByOS{
			"windows": cim("Win32_SystemDriver", "SysDriver.txt"),
			"linux":   collectors.CopyFile{Source: "/proc/modules", Output: "SysDriver.txt"},
		}),
		timedTask("DXDiag", CategoryDrivers, "DirectX and graphics diagnostics", 60*time.Second,
			windowsOnly(cmd("DxDiag.txt", "dxdiag", "/t", collectors.OutputPlaceholder, "/whql:off"))),
		task("SystemInfo", CategorySystem, "Operating system summary", collectors.ByOS{
			"windows": cmd("SystemInfo.txt", "systeminfo"),
			"*":       cmd("SystemInfo.txt", "uname", "-a"),
		}),
		task("Drivers", CategoryDrivers, "Signed device drivers", collectors.ByOS{
			"windows": cim("Win32_PnPSignedDriver", "DriversList.txt"),
			"linux":   cmd("DriversList.txt", "lsmod"),
		}),
		task("Event Logs", CategoryLogs, "System and application logs", collectors.ByOS{
			"windows": collectors.Sequence{
				cmd("System.evtx", "wevtutil", "epl", "System", collectors.OutputPlaceholder),
				cmd("Application.evtx", "wevtutil", "epl", "Application", collectors.OutputPlaceholder),
			},
			"linux": cmd("Journal.txt", "journalctl", "-b", "--no-pager", "-n", "5000"),
		}),
		task("IPConfig", CategoryNetwork, "IP configuration of all interfaces", collectors.ByOS{
			"windows": cmd("NetworkConfig.txt", "ipconfig", "/all"),
			"linux":   cmd("NetworkConfig.txt", "ip", "addr", "show"),
			"*":       cmd("NetworkConfig.txt", "ifconfig", "-a"),
		}),
		task("Installed Programs", CategoryOther, "Installed software", collectors.ByOS{
			"windows": powershell("InstalledPrograms.txt",
				`Get-ItemProperty HKLM:\Software\Microsoft\Windows\CurrentVersion\Uninstall\*, `+
					`HKLM:\Software\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\* `+
					`| Select-Object DisplayName, DisplayVersion, Publisher | Out-String -Width 4096`),
			"linux": cmd("InstalledPrograms.txt", "dpkg-query", "-W"),
		}),
		task("Windows Store Apps", CategoryOther, "Installed Store packages",
			windowsOnly(powershell("StoreApps.txt", "Get-AppxPackage | Select-Object Name, Version | Out-String"))),
		task("System Services", CategoryServices, "Service status", collectors.ByOS{
			"windows": cmd("SystemServices.txt", "sc", "query"),
			"linux":   cmd("SystemServices.txt", "systemctl", "list-units", "--type=service", "--no-pager"),
		}),
		task("Processes", CategoryServices, "Running applications and tasks",
			probe("RunningProcesses.yaml", collectors.Processes)),
		task("Performance Data", CategoryHardware, "CPU utilisation and load",
			probe("PerformanceData.yaml", collectors.PerformanceData)),
		task("HOSTS File", CategoryNetwork, "Static host name mappings", collectors.ByOS{
			"windows": collectors.CopyFile{Source: `C:\Windows\System32\drivers\etc\hosts`, Output: "HostsFile.txt"},
			"*":       collectors.CopyFile{Source: "/etc/hosts", Output: "HostsFile.txt"},
		}),
		task("Dsregcmd", CategorySystem, "Device registration status",
			windowsOnly(cmd("DsRegCmd.txt", "dsregcmd", "/status"))),
		task("Scheduled Tasks", CategoryServices, "Scheduled jobs", collectors.ByOS{
			"windows": cmd("ScheduledTasks.txt", "schtasks", "/query"),
			"linux":   cmd("ScheduledTasks.txt", "systemctl", "list-timers", "--all", "--no-pager"),
		}),
		task("Windows Update Log", CategoryLogs, "Update client history",
			windowsOnly(cmd("WindowsUpdate.txt", "wevtutil", "qe", "Microsoft-Windows-WindowsUpdateClient/Operational", "/f:text"))),

		adminTask("Chkdsk", CategoryStorage, "Read-only file system scan", 30*time.Minute,
			windowsOnly(cmd("Chkdsk.txt", "chkdsk", "C:", "/scan"))),
		adminTask("DISM CheckHealth", CategorySystem, "Component store health", 10*time.Minute,
			windowsOnly(cmd("DISMCheckHealth.txt", "dism", "/online", "/cleanup-image", "/checkhealth"))),
		adminTask("Battery Report", CategoryHardware, "Battery capacity history", 0, collectors.ByOS{
			"windows": cmd("BatteryReport.html", "powercfg", "/batteryreport", "/output", collectors.OutputPlaceholder),
			"linux":   cmd("BatteryReport.txt", "upower", "--dump"),
		}),
		adminTask("Driver Verifier", CategoryDrivers, "Driver verifier settings", 0,
			windowsOnly(cmd("DriverVerifierSettings.txt", "verifier", "/querysettings"))),
		adminTask("BSOD Minidump", CategoryLogs, "Most recent crash dumps", 0, collectors.ByOS{
			"windows": collectors.CopyRecent{Dir: `C:\Windows\Minidump`, Ext: ".dmp", Limit: 3, Dest: "Minidump"},
			"linux":   collectors.CopyRecent{Dir: "/var/crash", Ext: ".crash", Limit: 3, Dest: "Minidump"},
		}),
	)
}
