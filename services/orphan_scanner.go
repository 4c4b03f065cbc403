package services

import (
	"os"
	"strings"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
)

/**
 * OrphanScanner 扫描操作系统进程表里的隧道子进程
 * @description
 * - 按配置的特征（可执行名+命令行子串）匹配，与注册表内容无关
 * - 注册表丢失（进程崩溃后重启）时用来找回或清掉残留隧道
 * - ForceKillAll 是应急通道，直接强杀，不走两阶段终止
 */
type OrphanScanner struct {
	patterns []config.ProcessPattern
	registry *SessionRegistry // 可为nil，仅用于标记哪些进程是已登记的会话
}

func NewOrphanScanner(patterns []config.ProcessPattern, registry *SessionRegistry) *OrphanScanner {
	return &OrphanScanner{patterns: patterns, registry: registry}
}

// 判断一个进程是否符合隧道子进程的特征
func (s *OrphanScanner) matches(proc utils.ProcessInfo) bool {
	for _, p := range s.patterns {
		if p.Executable != "" && !strings.EqualFold(proc.Executable, p.Executable) {
			continue
		}
		if p.Contains != "" && !strings.Contains(proc.Command, p.Contains) {
			continue
		}
		return true
	}
	return false
}

// 进程PID是否对应注册表里的某个会话
func (s *OrphanScanner) tracked(pid int) bool {
	if s.registry == nil {
		return false
	}
	for _, si := range s.registry.All() {
		if si.Snapshot().Pid == pid {
			return true
		}
	}
	return false
}

/**
 * FindOrphans 枚举所有符合隧道特征的进程
 * @returns {[]models.OrphanProcess} 匹配的进程列表
 * @returns {error} 进程表枚举失败时返回错误
 * @description
 * - 全系统扫描，不做注册表差分，注册表丢了也能找到残留
 * - Tracked字段标记该进程是否同时登记在当前注册表里
 */
func (s *OrphanScanner) FindOrphans() ([]models.OrphanProcess, error) {
	procs, err := utils.ListProcesses()
	if err != nil {
		logger.Errorf("Failed to list processes: %v", err)
		return nil, err
	}

	self := os.Getpid()
	orphans := []models.OrphanProcess{}
	for _, proc := range procs {
		if proc.Pid == self {
			continue
		}
		if !s.matches(proc) {
			continue
		}
		orphans = append(orphans, models.OrphanProcess{
			Pid:        proc.Pid,
			Executable: proc.Executable,
			Command:    proc.Command,
			Tracked:    s.tracked(proc.Pid),
		})
	}
	return orphans, nil
}

/**
 * ForceKillAll 强杀所有符合隧道特征的进程
 * @returns {models.OrphanKillResult} 找到/杀掉/失败的进程清单
 * @returns {error} 进程表枚举失败时返回错误
 * @description
 * - 不先尝试温和信号，直接强杀，属于应急清理手段
 * - 杀完短暂轮询确认，确认不了的进入Failed清单
 */
func (s *OrphanScanner) ForceKillAll() (*models.OrphanKillResult, error) {
	orphans, err := s.FindOrphans()
	if err != nil {
		return nil, err
	}

	result := &models.OrphanKillResult{Found: len(orphans)}
	for _, orphan := range orphans {
		if err := utils.KillProcessByPID(orphan.Pid); err != nil {
			logger.Warnf("Failed to kill orphan process (PID: %d): %v", orphan.Pid, err)
			result.Failed = append(result.Failed, orphan)
			continue
		}
		if utils.WaitProcessExit(orphan.Pid, 3*time.Second, 100*time.Millisecond) {
			logger.Infof("Orphan process killed (PID: %d, CMD: %s)", orphan.Pid, orphan.Command)
			result.Killed++
		} else {
			logger.Warnf("Orphan process (PID: %d) survived kill", orphan.Pid)
			result.Failed = append(result.Failed, orphan)
		}
	}
	return result, nil
}
