package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// DesktopPathEnv overrides desktop binary discovery.
const DesktopPathEnv = "OPENCODE_DESKTOP_PATH"

// desktopBinaryName is the executable searched on PATH as the last
// discovery step.
const desktopBinaryName = "opencode-desktop"

// desktopInstallPaths lists the known per-OS install locations, probed in
// order after the environment override.
func desktopInstallPaths() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/OpenCode.app/Contents/MacOS/opencode-desktop",
			filepath.Join(home, "Applications", "OpenCode.app", "Contents", "MacOS", "opencode-desktop"),
		}
	case "windows":
		return []string{
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Programs", "OpenCode", "opencode-desktop.exe"),
			filepath.Join(os.Getenv("ProgramFiles"), "OpenCode", "opencode-desktop.exe"),
		}
	default:
		return []string{
			"/usr/local/bin/opencode-desktop",
			"/opt/opencode/opencode-desktop",
			filepath.Join(home, ".local", "bin", "opencode-desktop"),
		}
	}
}

// DiscoverDesktopBinary resolves the desktop agent binary: environment
// override first, then known install paths, then the executable search
// path.
func DiscoverDesktopBinary() (string, error) {
	if p := os.Getenv(DesktopPathEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s=%q: %v", errdefs.ErrSpawn, DesktopPathEnv, p, err)
		}
		return p, nil
	}
	for _, p := range desktopInstallPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if p, err := exec.LookPath(desktopBinaryName); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%w: desktop binary %q not found", errdefs.ErrSpawn, desktopBinaryName)
}

// LaunchFunc starts the desktop binary detached with the identity file on
// its command line and returns the PID.
type LaunchFunc func(binPath, identityPath string) (int, error)

// LaunchDesktop is the production LaunchFunc: a detached subprocess (new
// session on POSIX, new process group on Windows) whose stdout is never
// read.
func LaunchDesktop(binPath, identityPath string) (int, error) {
	cmd := exec.Command(binPath, identityPath)
	cmd.SysProcAttr = detachAttr()
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: launch %s: %v", errdefs.ErrSpawn, binPath, err)
	}
	pid := cmd.Process.Pid
	// The process may outlive this server, but while the server runs it
	// stays the parent: reap the child on exit so it never lingers as a
	// zombie.
	go func() { _ = cmd.Wait() }()
	return pid, nil
}
