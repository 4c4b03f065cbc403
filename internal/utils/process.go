package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProcessInfo describes one row of the OS process listing.
type ProcessInfo struct {
	Pid        int
	Executable string //可执行文件基础名，已剥离路径和.exe后缀
	Command    string //完整命令行
}

/**
 * Find a running process by PID, verifying the executable name matches
 * @param {string} processName - Expected executable base name
 * @param {int} pid - Process ID to look up
 * @returns {*os.Process} Returns process handle when alive and name matches
 * @description
 * - Used when re-adopting cached sessions after a keeper restart
 * - The name check guards against PID reuse by unrelated processes
 */
func FindProcess(processName string, pid int) (*os.Process, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}
	if running, _ := IsProcessRunning(pid); !running {
		return nil, fmt.Errorf("process with PID %d is not running", pid)
	}

	name, err := GetProcessName(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get process name for PID %d: %v", pid, err)
	}

	// 比较进程名（不区分大小写）
	if strings.EqualFold(Path2ProcessName(name), Path2ProcessName(processName)) {
		return proc, nil
	}
	return nil, fmt.Errorf("process name mismatch: expected '%s', got '%s'", processName, name)
}

// Path2ProcessName strips the directory and the windows .exe suffix from an
// executable path, yielding the bare process name.
func Path2ProcessName(path string) string {
	name := filepath.Base(strings.TrimSpace(path))
	name = strings.TrimSuffix(name, ".exe")
	return name
}

/**
 * Wait until a process exits or the timeout elapses
 * @param {int} pid - Process ID to watch
 * @param {time.Duration} timeout - Maximum time to wait
 * @param {time.Duration} interval - Poll interval between liveness checks
 * @returns {bool} Returns true when the process exited within the timeout
 */
func WaitProcessExit(pid int, timeout, interval time.Duration) bool {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		if running, _ := IsProcessRunning(pid); !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
