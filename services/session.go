package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
)

// LaunchOptions 一次会话子进程启动的控制参数
type LaunchOptions struct {
	Classifier OutputClassifier
	Timeout    time.Duration // 等待会话标识出现的上限
	Settle     time.Duration // 标识出现后等待本地端口完成绑定的时间
	Poll       time.Duration // 轮询子进程输出的间隔
	Detach     bool          // 子进程脱离进程组，父进程退出后隧道继续存活
}

/**
 * SessionInstance 一个端口转发会话与其背后的子进程
 * @description
 * - 嵌入models.Session承载可序列化的会话信息
 * - process保存进程对象，用于信号和回收
 * - spawned区分自己拉起的进程和从缓存恢复后附加的进程
 */
type SessionInstance struct {
	models.Session
	mutex   sync.Mutex
	process *os.Process   // 进程对象
	spawned bool          // 是否由本进程创建
	done    chan struct{} // 子进程退出后关闭，仅spawned会话有效
	exitErr error
}

func NewSessionInstance(instanceID string, localPort, remotePort int, profile, region string) *SessionInstance {
	return &SessionInstance{
		Session: models.Session{
			InstanceID: instanceID,
			LocalPort:  localPort,
			RemotePort: remotePort,
			Profile:    profile,
			Region:     region,
			Status:     models.StatusStarting,
		},
	}
}

func (si *SessionInstance) title() string {
	return fmt.Sprintf("%s:%d->%d", si.InstanceID, si.LocalPort, si.RemotePort)
}

// Snapshot 返回会话数据的一致拷贝
func (si *SessionInstance) Snapshot() models.Session {
	si.mutex.Lock()
	defer si.mutex.Unlock()
	return si.Session
}

// SessionOutputPath 会话子进程的输出文件路径，放在日志目录下随会话键命名
// ext取".out"或".err"
func SessionOutputPath(instanceID string, localPort int, ext string) string {
	dir := filepath.Join(config.Config.Directory.Logs, "sessions")
	os.MkdirAll(dir, 0755)
	return filepath.Join(dir, fmt.Sprintf("%s-%d%s", instanceID, localPort, ext))
}

func (si *SessionInstance) outputPath(ext string) string {
	return SessionOutputPath(si.InstanceID, si.LocalPort, ext)
}

/**
 * StartSession 启动会话子进程并等待其就绪
 * @param {context.Context} ctx - 上下文，取消时中止启动
 * @param {string} command - 启动命令
 * @param {[]string} args - 完整参数
 * @param {LaunchOptions} opts - 启动控制参数
 * @returns {error} 启动失败返回对应的错误分类
 * @description
 * - 子进程stdout/stderr重定向到会话输出文件，父进程退出不影响子进程写出
 * - 轮询stdout文件匹配会话标识，轮询stderr文件匹配已知失败特征
 * - 标识、失败、进程退出、超时几个事件先到先生效，只判定一次
 * - 任何失败路径都会把子进程杀掉，不留残余进程
 */
func (si *SessionInstance) StartSession(ctx context.Context, command string, args []string, opts LaunchOptions) error {
	si.mutex.Lock()
	if si.Status == models.StatusActive {
		si.mutex.Unlock()
		return nil
	}
	si.Status = models.StatusStarting
	si.mutex.Unlock()

	logger.Infof("Executing command: %s %s", command, strings.Join(args, " "))

	stdoutPath := si.outputPath(".out")
	stderrPath := si.outputPath(".err")
	stdout, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		si.markFailed(fmt.Sprintf("create session output: %v", err))
		return fmt.Errorf("%w: create session output: %v", ErrSpawnFailed, err)
	}
	stderr, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		stdout.Close()
		si.markFailed(fmt.Sprintf("create session output: %v", err))
		return fmt.Errorf("%w: create session output: %v", ErrSpawnFailed, err)
	}

	cmd := exec.Command(command, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if opts.Detach {
		utils.SetNewPG(cmd)
	}

	err = cmd.Start()
	// 子进程已持有自己的文件句柄，父进程这边立即关掉
	stdout.Close()
	stderr.Close()
	if err != nil {
		si.markFailed(fmt.Sprintf("spawn failed: %v", err))
		logger.Errorf("Failed to start session '%s', error: %v", si.title(), err)
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	si.mutex.Lock()
	si.process = cmd.Process
	si.Pid = cmd.Process.Pid
	si.StartTime = time.Now()
	si.spawned = true
	si.done = make(chan struct{})
	si.mutex.Unlock()

	// 回收协程，统一Wait()避免僵尸进程
	go func() {
		werr := cmd.Wait()
		si.markExited(werr)
	}()

	logger.Infof("Session '%s' process started (PID: %d)", si.title(), si.Pid)
	return si.waitReady(ctx, stdoutPath, stderrPath, opts)
}

/**
 * waitReady 等待会话就绪或失败
 * @description
 * - stderr里的失败特征优先于stdout标识，出现即判负
 * - 标识命中后等待settle时间让插件完成本地端口绑定
 * - done通道在进程退出时关闭，nil通道的分支永远不会触发（附加的会话）
 */
func (si *SessionInstance) waitReady(ctx context.Context, stdoutPath, stderrPath string, opts LaunchOptions) error {
	poll := opts.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ticker.C:
			if errBuf, err := os.ReadFile(stderrPath); err == nil {
				if ferr, ok := opts.Classifier.ClassifyFailure(errBuf); ok {
					si.abortLaunch(fmt.Sprintf("launch failed: %v", ferr))
					return ferr
				}
			}
			if outBuf, err := os.ReadFile(stdoutPath); err == nil {
				if id, ok := opts.Classifier.MatchSessionID(outBuf); ok {
					if opts.Settle > 0 {
						time.Sleep(opts.Settle)
					}
					select {
					case <-si.done:
						return si.prematureExit(stderrPath, opts)
					default:
					}
					si.mutex.Lock()
					si.SessionID = id
					si.Status = models.StatusActive
					si.mutex.Unlock()
					logger.Infof("Session '%s' active (SessionId: %s, PID: %d)", si.title(), id, si.Pid)
					return nil
				}
			}
		case <-si.done:
			return si.prematureExit(stderrPath, opts)
		case <-timer.C:
			si.abortLaunch("launch timed out")
			return fmt.Errorf("%w after %s", ErrLaunchTimeout, opts.Timeout)
		case <-ctx.Done():
			si.abortLaunch("launch canceled")
			return ctx.Err()
		}
	}
}

// 子进程在输出会话标识之前就退出了，退出码为0也算失败
func (si *SessionInstance) prematureExit(stderrPath string, opts LaunchOptions) error {
	if buf, err := os.ReadFile(stderrPath); err == nil {
		if ferr, ok := opts.Classifier.ClassifyFailure(buf); ok {
			si.markFailed(fmt.Sprintf("launch failed: %v", ferr))
			return ferr
		}
	}

	si.mutex.Lock()
	werr := si.exitErr
	si.Status = models.StatusFailed
	if werr != nil {
		si.LastExitReason = fmt.Sprintf("exited before session id: %v", werr)
	} else {
		si.LastExitReason = "exited before session id"
	}
	si.mutex.Unlock()

	logger.Errorf("Session '%s' process exited before session id", si.title())
	if werr != nil {
		return fmt.Errorf("%w: process exited before session id: %v", ErrSpawnFailed, werr)
	}
	return fmt.Errorf("%w: process exited before session id", ErrSpawnFailed)
}

// 启动失败，杀掉子进程并确认其退出
func (si *SessionInstance) abortLaunch(reason string) {
	si.mutex.Lock()
	pid := si.Pid
	si.Status = models.StatusFailed
	si.LastExitReason = reason
	si.mutex.Unlock()

	if pid <= 0 {
		return
	}
	if err := utils.KillProcessByPID(pid); err != nil {
		logger.Warnf("Failed to kill session '%s' process (PID: %d): %v", si.title(), pid, err)
	}
	if !utils.WaitProcessExit(pid, 3*time.Second, 100*time.Millisecond) {
		logger.Warnf("Session '%s' process (PID: %d) survived kill", si.title(), pid)
	}
}

func (si *SessionInstance) markFailed(reason string) {
	si.mutex.Lock()
	defer si.mutex.Unlock()
	si.Status = models.StatusFailed
	si.LastExitReason = reason
}

/**
 * markExited 子进程退出后由回收协程调用
 * @description
 * - stop流程主导的退出不改写状态，由stop流程填退出原因
 * - active阶段的意外退出标记为failed
 * - starting阶段的退出由启动流程负责分类，这里只记录
 */
func (si *SessionInstance) markExited(werr error) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.exitErr = werr
	si.LastExitTime = time.Now()
	switch si.Status {
	case models.StatusStopping, models.StatusStopped:
		// stop流程负责状态与退出原因
	case models.StatusActive:
		if werr != nil {
			logger.Errorf("Session '%s' (PID: %d) exited with error: %v", si.title(), si.Pid, werr)
			si.LastExitReason = fmt.Sprintf("exited with error: %v", werr)
		} else {
			logger.Infof("Session '%s' (PID: %d) exited", si.title(), si.Pid)
			si.LastExitReason = "exited normally"
		}
		si.Status = models.StatusFailed
	default:
	}
	si.process = nil
	if si.done != nil {
		close(si.done)
	}
}

/**
 * AttachProcess 把缓存恢复的会话附加到已存在的进程上
 * @param {string} processName - 期望的可执行文件名，防止PID被复用后误附加
 * @param {int} pid - 进程PID
 * @returns {error} 进程不存在或名称不匹配时返回错误
 */
func (si *SessionInstance) AttachProcess(processName string, pid int) error {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	proc, err := utils.FindProcess(processName, pid)
	if err != nil {
		logger.Warnf("Failed to attach session '%s' (PID: %d): %v", si.title(), pid, err)
		return err
	}
	si.process = proc
	si.Pid = pid
	si.spawned = false
	// 缓存里的stopping状态保留，等用户重试停止；其余情况视为活跃
	if si.Status == "" || si.Status == models.StatusStarting {
		si.Status = models.StatusActive
	}
	logger.Infof("Session '%s' attached (PID: %d, NAME: %s)", si.title(), pid, processName)
	return nil
}

/**
 * IsAlive 判断会话子进程当前是否存活
 * @returns {bool} 存活返回true
 */
func (si *SessionInstance) IsAlive() bool {
	si.mutex.Lock()
	pid := si.Pid
	status := si.Status
	si.mutex.Unlock()

	if status.Terminal() || pid <= 0 {
		return false
	}
	running, err := utils.IsProcessRunning(pid)
	if err != nil {
		return false
	}
	return running
}
