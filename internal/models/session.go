package models

import "time"

type SessionStatus string

const (
	// 会话启动中，等待插件输出SessionId标记
	StatusStarting SessionStatus = "starting"
	// 隧道已建立，本地端口可用
	StatusActive SessionStatus = "active"
	// 正在终止会话进程
	StatusStopping SessionStatus = "stopping"
	// 会话已正常终止
	StatusStopped SessionStatus = "stopped"
	// 启动失败或进程异常退出
	StatusFailed SessionStatus = "failed"
)

// Terminal reports whether the status is an end state. A session in a
// terminal state holds no live process.
func (s SessionStatus) Terminal() bool {
	return s == StatusStopped || s == StatusFailed
}

// SessionKey identifies one port-forwarding session. Two sessions to the
// same instance on different port pairs are distinct entries.
type SessionKey struct {
	InstanceID string `json:"instanceId"`
	LocalPort  int    `json:"localPort"`
	RemotePort int    `json:"remotePort"`
}

// Session describes one SSM port-forwarding session driven by an external
// aws/session-manager-plugin subprocess.
type Session struct {
	SessionID      string        `json:"sessionId"`      //SSM会话ID，由插件输出解析得到
	InstanceID     string        `json:"instanceId"`     //目标EC2实例ID
	LocalPort      int           `json:"localPort"`      //本地监听端口
	RemotePort     int           `json:"remotePort"`     //实例侧端口
	Profile        string        `json:"profile"`        //解析后的AWS profile名
	Region         string        `json:"region"`         //AWS区域
	Pid            int           `json:"pid"`            //隧道子进程PID
	Status         SessionStatus `json:"status"`         //状态
	StartTime      time.Time     `json:"startTime"`      //启动时间
	LastExitTime   time.Time     `json:"lastExitTime"`   //最后一次退出的时间
	LastExitReason string        `json:"lastExitReason"` //最后一次退出的原因
}

// Key returns the registry key of the session.
func (s *Session) Key() SessionKey {
	return SessionKey{InstanceID: s.InstanceID, LocalPort: s.LocalPort, RemotePort: s.RemotePort}
}

// CreateSessionRequest defines the request body for starting a session
type CreateSessionRequest struct {
	InstanceID string `json:"instanceId" binding:"required" example:"i-0abc123def456"`
	LocalPort  int    `json:"localPort" binding:"required" example:"5432"`
	RemotePort int    `json:"remotePort" binding:"required" example:"5432"`
	Profile    string `json:"profile" example:"default"`
}

// StopSessionResult reports the outcome of a session stop
type StopSessionResult struct {
	SessionID         string `json:"sessionId"`
	InstanceID        string `json:"instanceId"`
	ProcessTerminated bool   `json:"processTerminated"` //进程是否已退出
	PortReleased      bool   `json:"portReleased"`      //本地端口是否已释放，仅供参考
	Message           string `json:"message"`
}
