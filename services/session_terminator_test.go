//go:build !windows

package services

import (
	"net"
	"os/exec"
	"testing"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
)

// 终止超时调短，让测试跑得快
func newTestTerminator(graceful time.Duration) *SessionTerminator {
	return NewSessionTerminator(&config.SessionConfig{
		GracefulTimeout: graceful,
		KillTimeout:     2 * time.Second,
		PollInterval:    20 * time.Millisecond,
	})
}

/**
 * Test stopping a process that already exited
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Termination short-circuits when the PID is gone, no signals are sent
 * - A session without a PID is treated the same way
 * @example
 * // Run this test with: go test -v -run TestStopAlreadyExitedProcess
 */
func TestStopAlreadyExitedProcess(t *testing.T) {
	// 同步跑完一个进程，拿到一个确定已退出的PID
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to run helper process: %v", err)
	}
	deadPid := cmd.Process.Pid

	si := makeSession("i-0abc123def456", freeLocalPort(t), 5432, models.StatusStopping)
	si.Pid = deadPid

	result, err := newTestTerminator(time.Second).Stop(si)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !result.ProcessTerminated {
		t.Error("Expected termination to short-circuit for a dead process")
	}
	if !result.PortReleased {
		t.Error("Expected the free local port to be reported as released")
	}

	// 没有PID的会话同样直接短路
	blank := makeSession("i-0abc123def456", freeLocalPort(t), 5432, models.StatusStopping)
	result, err = newTestTerminator(time.Second).Stop(blank)
	if err != nil {
		t.Fatalf("Stop failed for a session without PID: %v", err)
	}
	if !result.ProcessTerminated {
		t.Error("Expected termination to short-circuit without a PID")
	}
}

/**
 * Test graceful termination of a live process
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - A well behaved process exits on the graceful signal
 * - The PID must be gone after Stop returns
 * @example
 * // Run this test with: go test -v -run TestStopTerminatesGracefully
 */
func TestStopTerminatesGracefully(t *testing.T) {
	pid := spawnTestProcess(t, "sleep", "30")

	si := makeSession("i-0abc123def456", freeLocalPort(t), 5432, models.StatusStopping)
	si.Pid = pid

	result, err := newTestTerminator(2 * time.Second).Stop(si)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !result.ProcessTerminated {
		t.Error("Expected the process to terminate on the graceful signal")
	}
	if running, _ := utils.IsProcessRunning(pid); running {
		t.Errorf("Expected process %d to be gone after Stop", pid)
	}
}

/**
 * Test escalation to a forceful kill
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - The subprocess ignores the graceful signal, so the short graceful window
 *   elapses and Stop escalates to a kill
 * - Stop must still report the process as terminated
 * @example
 * // Run this test with: go test -v -run TestStopEscalatesToKill
 */
func TestStopEscalatesToKill(t *testing.T) {
	pid := spawnTestProcess(t, "sh", "-c", `trap '' TERM; sleep 30`)
	// 给shell一点时间装好信号处理
	time.Sleep(100 * time.Millisecond)

	si := makeSession("i-0abc123def456", freeLocalPort(t), 5432, models.StatusStopping)
	si.Pid = pid

	result, err := newTestTerminator(300 * time.Millisecond).Stop(si)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !result.ProcessTerminated {
		t.Error("Expected the kill escalation to terminate the process")
	}
	if running, _ := utils.IsProcessRunning(pid); running {
		t.Errorf("Expected process %d to be gone after escalation", pid)
	}
}

/**
 * Test the advisory port release check
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - A port still held elsewhere is reported as not released
 * - The bound port does not turn the stop into a failure
 * @example
 * // Run this test with: go test -v -run TestStopReportsBoundPort
 */
func TestStopReportsBoundPort(t *testing.T) {
	// 测试进程自己占住端口，模拟端口未及时释放的场景
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to bind a port: %v", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to run helper process: %v", err)
	}

	si := makeSession("i-0abc123def456", port, 5432, models.StatusStopping)
	si.Pid = cmd.Process.Pid

	result, err := newTestTerminator(time.Second).Stop(si)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !result.ProcessTerminated {
		t.Error("Expected termination to succeed")
	}
	// 端口核对只是参考信息，占用不算失败
	if result.PortReleased {
		t.Error("Expected the held port to be reported as not released")
	}
}
