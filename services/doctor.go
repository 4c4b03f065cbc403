package services

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/env"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
)

/**
 * RunDoctor 诊断本机运行环境
 * @param {config.AppConfig} cfg - 应用配置
 * @returns {[]models.DoctorCheck} 逐项诊断结果
 * @description
 * - 核对隧道命令（默认aws CLI）在PATH里能找到
 * - 核对session-manager-plugin已安装，缺了它启动必然失败
 * - 核对keeper目录可写，缓存和日志都要落在这里
 * - 核对守护进程状态文件和真实进程一致，服务器不在线属于正常
 */
func RunDoctor(cfg *config.AppConfig) []models.DoctorCheck {
	checks := []models.DoctorCheck{}

	command := cfg.Session.Command
	if path, err := exec.LookPath(command); err == nil {
		checks = append(checks, models.DoctorCheck{Name: command, Passed: true, Detail: path})
	} else {
		checks = append(checks, models.DoctorCheck{
			Name:   command,
			Passed: false,
			Detail: fmt.Sprintf("'%s' not found in PATH", command),
		})
	}

	if path, err := exec.LookPath("session-manager-plugin"); err == nil {
		checks = append(checks, models.DoctorCheck{Name: "session-manager-plugin", Passed: true, Detail: path})
	} else {
		checks = append(checks, models.DoctorCheck{
			Name:   "session-manager-plugin",
			Passed: false,
			Detail: "session-manager-plugin not found in PATH, port forwarding will fail",
		})
	}

	probe := filepath.Join(env.KeeperDir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err == nil {
		os.Remove(probe)
		checks = append(checks, models.DoctorCheck{Name: "keeper-dir", Passed: true, Detail: env.KeeperDir})
	} else {
		checks = append(checks, models.DoctorCheck{
			Name:   "keeper-dir",
			Passed: false,
			Detail: fmt.Sprintf("'%s' is not writable: %v", env.KeeperDir, err),
		})
	}

	checks = append(checks, serverCheck())

	return checks
}

// serverCheck核对状态文件指向的守护进程，不在线不算失败
// 状态文件残留却没有对应进程时CLI的RPC优先逻辑会被误导，这才算问题
func serverCheck() models.DoctorCheck {
	data, err := os.ReadFile(env.StatePath())
	if err != nil {
		return models.DoctorCheck{
			Name:   "server",
			Passed: true,
			Detail: "not running, session commands manage sessions locally",
		}
	}
	var state models.ServerState
	if err := json.Unmarshal(data, &state); err != nil || state.Pid <= 0 {
		return models.DoctorCheck{
			Name:   "server",
			Passed: false,
			Detail: fmt.Sprintf("state file '%s' is unreadable, run 'ssm-keeper clean'", env.StatePath()),
		}
	}
	if running, err := utils.IsProcessRunning(state.Pid); err == nil && running {
		return models.DoctorCheck{
			Name:   "server",
			Passed: true,
			Detail: fmt.Sprintf("running (PID: %d, port: %d)", state.Pid, state.ListenPort),
		}
	}
	return models.DoctorCheck{
		Name:   "server",
		Passed: false,
		Detail: fmt.Sprintf("state file says PID %d but the process is gone, run 'ssm-keeper clean'", state.Pid),
	}
}
