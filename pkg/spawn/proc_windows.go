//go:build windows

package spawn

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// detachAttr detaches the desktop subprocess into its own process group.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
}

// processAlive queries the process object for a still-active exit code.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == uint32(windows.STILL_ACTIVE)
}

// terminateProcess kills the process; an already-dead process is not an
// error.
func terminateProcess(pid int) error {
	if pid <= 0 {
		return nil
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := p.Kill(); err != nil && processAlive(pid) {
		return fmt.Errorf("%w: terminate pid %d: %v", errdefs.ErrSpawn, pid, err)
	}
	return nil
}
