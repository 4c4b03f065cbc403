package services

import (
	"fmt"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/utils"
)

// TerminationResult 终止操作的结果
type TerminationResult struct {
	ProcessTerminated bool // 进程是否确认退出
	PortReleased      bool // 本地端口是否确认释放，仅供参考
}

/**
 * SessionTerminator 两阶段终止会话子进程
 * @description
 * - 第一阶段发送温和终止信号，按固定间隔轮询等待退出
 * - 第二阶段升级为强制杀死，再轮询一个较短的窗口
 * - 两个阶段后进程仍存活视为终止失败，这是唯一的硬失败
 * - 端口释放核对只是参考信息，不构成失败
 */
type SessionTerminator struct {
	gracefulTimeout time.Duration
	killTimeout     time.Duration
	pollInterval    time.Duration
}

func NewSessionTerminator(cfg *config.SessionConfig) *SessionTerminator {
	return &SessionTerminator{
		gracefulTimeout: cfg.GracefulTimeout,
		killTimeout:     cfg.KillTimeout,
		pollInterval:    cfg.PollInterval,
	}
}

/**
 * Stop 终止会话子进程并核对端口释放
 * @param {SessionInstance} si - 待终止的会话
 * @returns {TerminationResult} 终止结果
 * @returns {error} 进程在两个阶段后仍存活时返回 ErrTerminationFailed
 * @description
 * - 进程已经退出时直接短路到端口核对
 * - 状态迁移由调用方负责，这里只处理进程与端口
 */
func (t *SessionTerminator) Stop(si *SessionInstance) (TerminationResult, error) {
	result := TerminationResult{}
	snap := si.Snapshot()
	pid := snap.Pid

	if pid <= 0 || !si.IsAlive() {
		// 进程早已退出，终止视为已完成
		result.ProcessTerminated = true
	} else {
		if err := utils.TerminateProcessGracefully(pid); err != nil {
			logger.Warnf("Failed to signal session '%s' (PID: %d): %v", si.title(), pid, err)
		}
		if utils.WaitProcessExit(pid, t.gracefulTimeout, t.pollInterval) {
			result.ProcessTerminated = true
			logger.Infof("Session '%s' (PID: %d) exited gracefully", si.title(), pid)
		} else {
			logger.Warnf("Session '%s' (PID: %d) ignored graceful signal, escalating to kill", si.title(), pid)
			if err := utils.KillProcessByPID(pid); err != nil {
				logger.Warnf("Failed to kill session '%s' (PID: %d): %v", si.title(), pid, err)
			}
			if utils.WaitProcessExit(pid, t.killTimeout, t.pollInterval) {
				result.ProcessTerminated = true
				logger.Infof("Session '%s' (PID: %d) killed", si.title(), pid)
			}
		}
	}

	if !result.ProcessTerminated {
		logger.Errorf("Session '%s' process (PID: %d) survived graceful and forceful termination", si.title(), pid)
		return result, fmt.Errorf("%w (PID: %d)", ErrTerminationFailed, pid)
	}

	// 端口核对：能重新绑定说明端口已释放；核不上也不算失败
	result.PortReleased = utils.CheckPortListenable(snap.LocalPort)
	if !result.PortReleased {
		logger.Warnf("Local port %d still appears bound after session '%s' stopped", snap.LocalPort, si.title())
	}
	return result, nil
}
