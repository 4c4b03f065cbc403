//go:build !windows && !linux && !darwin && !unix

package utils

import (
	"fmt"
	"os/exec"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
// 默认实现，用于不支持的构建目标
func SetNewPG(cmd *exec.Cmd) {
	// 默认不做任何处理
}

// ListProcesses 默认实现，不支持的构建目标上扫描不可用
func ListProcesses() ([]ProcessInfo, error) {
	return nil, fmt.Errorf("process listing is not supported on this platform")
}

// TerminateProcessGracefully 默认实现，用于不支持的构建目标
func TerminateProcessGracefully(pid int) error {
	return fmt.Errorf("graceful termination is not supported on this platform")
}

// KillProcessByPID 根据PID杀死进程
// 默认实现，用于不支持的构建目标
func KillProcessByPID(pid int) error {
	return fmt.Errorf("process kill is not supported on this platform")
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	return false, fmt.Errorf("process query is not supported on this platform")
}

// GetProcessName 根据PID获取进程名
func GetProcessName(pid int) (string, error) {
	return "", fmt.Errorf("process query is not supported on this platform")
}
