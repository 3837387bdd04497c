// Package platform answers host questions the orchestrator needs before it
// can filter the task catalog.
package platform

import (
	"os"
	"runtime"
)

// IsElevated reports whether the process runs with administrative rights.
// On Unix that is an effective uid of 0. On Windows it probes a handle that
// only elevated tokens may open.
func IsElevated() bool {
	if runtime.GOOS == "windows" {
		f, err := os.Open(`\\.\PHYSICALDRIVE0`)
		if err != nil {
			return false
		}
		_ = f.Close()
		return true
	}
	return os.Geteuid() == 0
}

// Admin resolves the effective privilege: override wins when set.
func Admin(override *bool) bool {
	if override != nil {
		return *override
	}
	return IsElevated()
}
