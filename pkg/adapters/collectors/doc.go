// Package collectors provides the diagnostic probes behind the task catalog.
//
// Building blocks:
//   - Probe: gathers a value in-process (gopsutil, environment) and writes it as YAML
//   - Command: runs an external tool under the caller's deadline
//   - CopyFile / CopyRecent: copy host files into the output directory
//   - ByOS / Sequence: compose the above per operating system
//
// Every collector honours ctx; the orchestrator injects the per-task timeout.
package collectors
