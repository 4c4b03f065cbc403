package services

import "errors"

// 会话启动/终止过程中可能出现的错误类别
// 调用方使用 errors.Is 判断具体类别
var (
	// ErrLaunchTimeout 启动超时：子进程在限定时间内既没有输出会话标识也没有报告已知错误
	ErrLaunchTimeout = errors.New("launch timed out waiting for session id")
	// ErrPluginMissing 本机未安装 session-manager-plugin
	ErrPluginMissing = errors.New("session-manager-plugin is not installed")
	// ErrAccessDenied 凭证无权限执行 ssm:StartSession
	ErrAccessDenied = errors.New("access denied by aws credentials")
	// ErrTargetNotConnected 目标实例未注册到 SSM 或 agent 离线
	ErrTargetNotConnected = errors.New("target instance is not connected to ssm")
	// ErrSpawnFailed 子进程本身无法创建（可执行文件缺失、权限等）
	ErrSpawnFailed = errors.New("failed to spawn session process")
	// ErrTerminationFailed 两阶段终止（SIGTERM/SIGKILL）后进程仍然存活
	ErrTerminationFailed = errors.New("process survived graceful and forceful termination")

	// ErrSessionExists 同一 (instance, localPort, remotePort) 已有活跃会话
	ErrSessionExists = errors.New("session already exists for this key")
	// ErrSessionNotFound 注册表中找不到匹配的会话
	ErrSessionNotFound = errors.New("session not found")
	// ErrStopInFlight 会话已经处于 stopping 状态，另一个 stop 正在进行
	ErrStopInFlight = errors.New("stop already in progress for this session")
	// ErrSessionBusy 会话处于 starting 状态，尚不能对其执行其它操作
	ErrSessionBusy = errors.New("session is still starting")
)

/**
 * ErrorKind 把错误映射成稳定的分类标签
 * @param {error} err - 任意错误
 * @returns {string} 分类标签，未识别的归为internal
 * @description
 * - API错误码和指标label都用这套标签，保持对外口径一致
 */
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrLaunchTimeout):
		return "launch_timeout"
	case errors.Is(err, ErrPluginMissing):
		return "plugin_missing"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrTargetNotConnected):
		return "target_not_connected"
	case errors.Is(err, ErrSpawnFailed):
		return "spawn_failed"
	case errors.Is(err, ErrTerminationFailed):
		return "termination_failed"
	case errors.Is(err, ErrSessionExists):
		return "session_exists"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrStopInFlight):
		return "stop_in_flight"
	case errors.Is(err, ErrSessionBusy):
		return "session_busy"
	default:
		return "internal"
	}
}
