//go:build unix || linux || darwin

package utils

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
// Unix系统实现（Linux/macOS）
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

/**
 * List all processes visible in the OS process table
 * @returns {[]ProcessInfo} Returns one entry per process with full command line
 * @description
 * - Uses a ps invocation compatible with both Linux and Darwin
 * - The command field is used instead of comm to avoid name truncation
 * - Lines that cannot be parsed are skipped
 */
func ListProcesses() ([]ProcessInfo, error) {
	// -e: 显示所有进程，-o: 自定义输出格式
	cmd := exec.Command("ps", "-e", "-o", "pid,command")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %v", err)
	}

	var procs []ProcessInfo
	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// 跳过标题行
		if strings.Contains(line, "PID") && strings.Contains(line, "COMMAND") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, ProcessInfo{
			Pid:        pid,
			Executable: Path2ProcessName(fields[1]),
			Command:    strings.Join(fields[1:], " "),
		})
	}
	return procs, nil
}

// TerminateProcessGracefully 发送SIGTERM，请求进程自行退出
func TerminateProcessGracefully(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process with PID %d: %v", pid, err)
	}
	return nil
}

// KillProcessByPID 根据PID强制杀死进程
func KillProcessByPID(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process with PID %d: %v", pid, err)
	}
	return nil
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}

	// 发送signal 0来检查进程是否存在
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	// EPERM表示进程存在但属于其他用户
	if errors.Is(err, syscall.EPERM) {
		return true, nil
	}
	return false, nil
}

// GetProcessName 根据PID获取进程名
func GetProcessName(pid int) (string, error) {
	cmd := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to query process name for PID %d: %v", pid, err)
	}
	name := strings.TrimSpace(string(output))
	if name == "" {
		return "", fmt.Errorf("no process found for PID %d", pid)
	}
	return Path2ProcessName(name), nil
}
