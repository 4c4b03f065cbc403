package models

import (
	"time"
)

// SessionCheckResult 会话检查结果
// @Description 单个端口转发会话的健康状态
type SessionCheckResult struct {
	SessionID    string `json:"sessionId" example:"botocore-session-17123" description:"SSM会话ID"`
	InstanceID   string `json:"instanceId" example:"i-0abc123def456" description:"目标实例ID"`
	LocalPort    int    `json:"localPort" example:"5432" description:"本地端口"`
	RemotePort   int    `json:"remotePort" example:"5432" description:"远端端口"`
	Status       string `json:"status" example:"active" description:"会话状态"`
	Pid          int    `json:"pid" example:"1234" description:"隧道进程PID"`
	ProcessAlive bool   `json:"processAlive" example:"true" description:"进程是否存活"`
	PortBound    bool   `json:"portBound" example:"true" description:"本地端口是否处于监听状态"`
	StartTime    string `json:"startTime" example:"2024-01-01T10:00:00Z" description:"启动时间"`
}

// DoctorCheck 一项环境诊断的结果
type DoctorCheck struct {
	Name   string `json:"name" example:"session-manager-plugin"`
	Passed bool   `json:"passed" example:"true"`
	Detail string `json:"detail" example:"/usr/local/bin/session-manager-plugin"`
}

// CheckResponse 检查API响应结构
// @Description 系统检查API响应数据结构
type CheckResponse struct {
	Timestamp     time.Time            `json:"timestamp" example:"2024-01-01T10:00:00Z" description:"检查时间戳"`
	Sessions      []SessionCheckResult `json:"sessions" description:"会话检查结果列表"`
	Orphans       []OrphanProcess      `json:"orphans" description:"匹配隧道特征的孤儿进程"`
	OverallStatus string               `json:"overallStatus" example:"healthy" description:"总体状态"`
	TotalChecks   int                  `json:"totalChecks" example:"4" description:"总检查项数"`
	PassedChecks  int                  `json:"passedChecks" example:"4" description:"通过检查项数"`
	FailedChecks  int                  `json:"failedChecks" example:"0" description:"失败检查项数"`
}
