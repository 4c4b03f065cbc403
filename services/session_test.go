//go:build !windows

package services

import (
	"context"
	"errors"
	"net"
	"os/exec"
	"testing"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
)

/**
 * Initialize test environment
 * @description
 * - Routes log output to the console so test failures carry context
 * - Called automatically when test package is loaded
 */
func init() {
	logger.InitLogger(&config.LogConfig{Level: "error", Path: "console"})
}

// 会话输出文件写到临时目录，测试结束自动清掉
func redirectSessionOutput(t *testing.T) {
	t.Helper()
	saved := config.Config.Directory.Logs
	config.Config.Directory.Logs = t.TempDir()
	t.Cleanup(func() { config.Config.Directory.Logs = saved })
}

// 起一个测试子进程并异步回收，防止僵尸进程骗过存活检查
func spawnTestProcess(t *testing.T, name string, args ...string) int {
	t.Helper()
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start test process: %v", err)
	}
	go cmd.Wait()
	pid := cmd.Process.Pid
	t.Cleanup(func() {
		utils.KillProcessByPID(pid)
	})
	return pid
}

// 拿一个当前空闲的本地端口
func freeLocalPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to probe for a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// 测试用启动参数，轮询和落定间隔都调短
func testLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Classifier: NewOutputClassifier(""),
		Timeout:    5 * time.Second,
		Settle:     50 * time.Millisecond,
		Poll:       20 * time.Millisecond,
	}
}

/**
 * Test the full launch path against a real subprocess
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Fakes the plugin with a shell script printing the marker line
 * - Session must end up active with the id parsed from stdout
 * - Process liveness is verified through the reported PID
 * @example
 * // Run this test with: go test -v -run TestStartSessionBecomesActive
 */
func TestStartSessionBecomesActive(t *testing.T) {
	redirectSessionOutput(t)

	si := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	script := `echo "Starting session with SessionId: botocore-session-1718"; sleep 30`
	err := si.StartSession(context.Background(), "sh", []string{"-c", script}, testLaunchOptions())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	snap := si.Snapshot()
	t.Cleanup(func() {
		utils.KillProcessByPID(snap.Pid)
		utils.WaitProcessExit(snap.Pid, 3*time.Second, 20*time.Millisecond)
	})

	if snap.Status != models.StatusActive {
		t.Errorf("Expected status active, got '%s'", snap.Status)
	}
	if snap.SessionID != "botocore-session-1718" {
		t.Errorf("Expected session id from stdout, got '%s'", snap.SessionID)
	}
	if snap.Pid <= 0 {
		t.Errorf("Expected a positive PID, got %d", snap.Pid)
	}
	if snap.StartTime.IsZero() {
		t.Error("Expected start time to be recorded")
	}
	if !si.IsAlive() {
		t.Error("Expected session process to be alive")
	}
}

/**
 * Test launch failure when the subprocess exits before printing the marker
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - An exit before the session id is a spawn failure even with exit code 0
 * - Unrecognized stderr content does not change the classification
 * @example
 * // Run this test with: go test -v -run TestStartSessionPrematureExit
 */
func TestStartSessionPrematureExit(t *testing.T) {
	redirectSessionOutput(t)

	// 什么都没输出就正常退出，同样算启动失败
	si := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	err := si.StartSession(context.Background(), "sh", []string{"-c", "exit 0"}, testLaunchOptions())
	if err == nil {
		t.Fatal("Expected an error for a process exiting before the session id")
	}
	if !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("Expected ErrSpawnFailed, got %v", err)
	}
	if si.Snapshot().Status != models.StatusFailed {
		t.Errorf("Expected status failed, got '%s'", si.Snapshot().Status)
	}

	// stderr有输出但不匹配任何已知特征，归类不变
	si2 := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	err = si2.StartSession(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 1"}, testLaunchOptions())
	if !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("Expected ErrSpawnFailed for unknown stderr, got %v", err)
	}
}

/**
 * Test stderr classification during launch
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - A known failure signature on stderr aborts the launch with its category
 * - The subprocess must not survive a failed launch
 * @example
 * // Run this test with: go test -v -run TestStartSessionClassifiesKnownStderr
 */
func TestStartSessionClassifiesKnownStderr(t *testing.T) {
	redirectSessionOutput(t)

	si := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	script := `echo "SessionManagerPlugin is not found" >&2; sleep 5`
	err := si.StartSession(context.Background(), "sh", []string{"-c", script}, testLaunchOptions())
	if !errors.Is(err, ErrPluginMissing) {
		t.Fatalf("Expected ErrPluginMissing, got %v", err)
	}
	snap := si.Snapshot()
	if snap.Status != models.StatusFailed {
		t.Errorf("Expected status failed, got '%s'", snap.Status)
	}
	// 失败路径要把子进程收掉，不留残余
	if running, _ := utils.IsProcessRunning(snap.Pid); running {
		t.Errorf("Expected process %d to be killed after launch failure", snap.Pid)
	}
}

/**
 * Test the launch timeout
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - A subprocess that never prints the marker trips the timeout
 * - The timed out subprocess gets killed
 * @example
 * // Run this test with: go test -v -run TestStartSessionLaunchTimeout
 */
func TestStartSessionLaunchTimeout(t *testing.T) {
	redirectSessionOutput(t)

	si := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	opts := testLaunchOptions()
	opts.Timeout = 300 * time.Millisecond
	err := si.StartSession(context.Background(), "sh", []string{"-c", "sleep 10"}, opts)
	if !errors.Is(err, ErrLaunchTimeout) {
		t.Fatalf("Expected ErrLaunchTimeout, got %v", err)
	}
	snap := si.Snapshot()
	if snap.Status != models.StatusFailed {
		t.Errorf("Expected status failed, got '%s'", snap.Status)
	}
	if running, _ := utils.IsProcessRunning(snap.Pid); running {
		t.Errorf("Expected process %d to be killed after timeout", snap.Pid)
	}
}

func TestStartSessionContextDeadline(t *testing.T) {
	redirectSessionOutput(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	si := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	err := si.StartSession(ctx, "sh", []string{"-c", "sleep 10"}, testLaunchOptions())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if si.Snapshot().Status != models.StatusFailed {
		t.Errorf("Expected status failed after cancel, got '%s'", si.Snapshot().Status)
	}
}

/**
 * Test spawn failure for a missing executable
 * @param {*testing.T} t - Testing framework instance
 * @example
 * // Run this test with: go test -v -run TestStartSessionMissingExecutable
 */
func TestStartSessionMissingExecutable(t *testing.T) {
	redirectSessionOutput(t)

	si := NewSessionInstance("i-0abc123def456", freeLocalPort(t), 5432, "", "")
	err := si.StartSession(context.Background(), "definitely-not-a-real-command", nil, testLaunchOptions())
	if !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("Expected ErrSpawnFailed, got %v", err)
	}
	if si.Snapshot().Status != models.StatusFailed {
		t.Errorf("Expected status failed, got '%s'", si.Snapshot().Status)
	}
}

/**
 * Test adopting an already running process after a keeper restart
 * @param {*testing.T} t - Testing framework instance
 * @description
 * - Attaching verifies the PID is alive and the executable name matches
 * - A name mismatch means the PID was reused and must be refused
 * @example
 * // Run this test with: go test -v -run TestAttachProcess
 */
func TestAttachProcess(t *testing.T) {
	pid := spawnTestProcess(t, "sleep", "30")

	si := &SessionInstance{Session: models.Session{
		SessionID:  "cached-session-9",
		InstanceID: "i-0abc123def456",
		LocalPort:  15432,
		RemotePort: 5432,
		Status:     models.StatusActive,
	}}
	if err := si.AttachProcess("sleep", pid); err != nil {
		t.Fatalf("AttachProcess failed: %v", err)
	}
	snap := si.Snapshot()
	if snap.Pid != pid {
		t.Errorf("Expected PID %d, got %d", pid, snap.Pid)
	}
	if snap.Status != models.StatusActive {
		t.Errorf("Expected status active, got '%s'", snap.Status)
	}
	if !si.IsAlive() {
		t.Error("Expected adopted session to be alive")
	}

	// 可执行名对不上时拒绝附加，防止PID被无关进程复用
	other := &SessionInstance{Session: models.Session{
		InstanceID: "i-0abc123def456",
		LocalPort:  15433,
		RemotePort: 5432,
	}}
	if err := other.AttachProcess("aws", pid); err == nil {
		t.Error("Expected a name mismatch error")
	}
}
