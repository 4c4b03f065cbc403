package services

import (
	"encoding/json"
	"os"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/env"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/models"
)

type Server struct {
	cfg       *config.AppConfig
	manager   *SessionManager
	startTime time.Time
}

/**
 * Create new server instance
 * @param {config.AppConfig} cfg - Application configuration
 * @returns {Server} Returns new server instance
 * @description
 * - Creates the session manager owned by this server
 * - Records the start time used by healthz and the state file
 * - Used as the main entry point for daemon operations
 */
func NewServer(cfg *config.AppConfig) *Server {
	return &Server{
		cfg:       cfg,
		manager:   NewSessionManager(cfg),
		startTime: time.Now(),
	}
}

/**
 * Get session manager instance
 * @returns {SessionManager} Returns the session manager
 * @description
 * - Returns the session manager associated with this server
 * - Provides access to start, stop, list and orphan operations
 * @example
 * server := NewServer(cfg)
 * sessions := server.Sessions()
 * sessions.ListSessions()
 */
func (s *Server) Sessions() *SessionManager {
	return s.manager
}

/**
 * Init 守护进程启动初始化
 * @returns {error} 初始化失败返回错误
 * @description
 * - 从缓存恢复上一个进程留下的会话并接管
 * - 写入运行状态文件，CLI据此定位服务器地址
 */
func (s *Server) Init() error {
	recovered := s.manager.LoadCache()
	if recovered > 0 {
		logger.Infof("Recovered %d session(s) from cache", recovered)
	}
	SetActiveSessions(s.manager.ActiveSessionCount())
	if err := s.writeStateFile(); err != nil {
		logger.Warnf("Failed to write server state file: %v", err)
	}
	return nil
}

// 运行状态文件，CLI在unix socket不可用时读它拿TCP地址
func (s *Server) writeStateFile() error {
	state := s.GetState()
	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(env.StatePath(), data, 0644)
}

/**
 * StartMonitoring 周期巡检会话
 * @description
 * - 周期由interval.monitoring控制，单位秒
 * - 每轮清理进程已死的会话，刷新活跃会话数和孤儿进程数指标
 * @example
 * go server.StartMonitoring()
 */
func (s *Server) StartMonitoring() {
	interval := time.Duration(s.cfg.Interval.Monitoring) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.manager.CheckSessions()
		SetActiveSessions(s.manager.ActiveSessionCount())
		if orphans, err := s.manager.FindOrphanedSessions(); err == nil {
			SetOrphanProcesses(len(orphans))
		}
	}
}

/**
 * Start periodic metrics reporting
 * @description
 * - Checks if metrics reporting is enabled (interval > 0)
 * - Creates ticker with configured metrics report interval
 * - Periodically pushes metrics to the configured pushgateway
 * - Runs indefinitely until server shutdown
 * @example
 * go server.StartReportMetrics()
 */
func (s *Server) StartReportMetrics() {
	interval := s.cfg.Interval.MetricsReport
	if interval <= 0 {
		logger.Info("Metrics reporting is disabled (interval <= 0)")
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := s.ReportMetrics(); err != nil {
			logger.Errorf("Metrics reporting error: %v", err)
		}
	}
}

func (s *Server) ReportMetrics() error {
	return CollectAndPushMetrics(s.cfg.Metrics.Pushgateway, 0)
}

/**
 * Check 汇总一次完整体检
 * @returns {models.CheckResponse} 体检结果
 * @description
 * - 巡检所有会话（进程存活+端口在听）
 * - 扫描系统里符合隧道特征的进程，未登记的算失败项
 * - 按失败比例给出healthy/warning/error总评
 * @example
 * checkResult := server.Check()
 * fmt.Printf("Status: %s (%d/%d passed)\n",
 *     checkResult.OverallStatus, checkResult.PassedChecks, checkResult.TotalChecks)
 */
func (s *Server) Check() models.CheckResponse {
	response := models.CheckResponse{
		Timestamp: time.Now(),
	}

	// 检查会话
	sessions := s.manager.CheckSessions()
	response.Sessions = sessions

	// 扫描孤儿进程
	orphans, err := s.manager.FindOrphanedSessions()
	if err != nil {
		logger.Warnf("Orphan scan failed during check: %v", err)
	}
	response.Orphans = orphans

	// 统计会话检查结果
	for _, sess := range sessions {
		response.TotalChecks++
		if sess.ProcessAlive && sess.PortBound && sess.Status == string(models.StatusActive) {
			response.PassedChecks++
		} else {
			response.FailedChecks++
		}
	}

	// 未登记的孤儿进程属于需要处理的残留
	for _, orphan := range orphans {
		if orphan.Tracked {
			continue
		}
		response.TotalChecks++
		response.FailedChecks++
	}

	// 确定总体状态
	if response.FailedChecks == 0 {
		response.OverallStatus = "healthy"
	} else if response.FailedChecks < response.TotalChecks/2 {
		response.OverallStatus = "warning"
	} else {
		response.OverallStatus = "error"
	}

	return response
}

func (s *Server) GetState() models.ServerState {
	state := models.ServerState{
		Pid:        os.Getpid(),
		StartTime:  s.startTime,
		ListenPort: env.ListenPort,
		SocketPath: env.SocketPath(),
	}

	// 环境设置
	state.Env.KeeperDir = env.KeeperDir
	state.Env.Daemon = env.Daemon
	state.Env.ListenPort = env.ListenPort
	state.Env.Version = env.Version
	return state
}

/**
 * Get health check response for the server
 * @returns {models.HealthResponse} Returns health check response with server status and metrics
 * @description
 * - Calculates server uptime from start time
 * - Collects session statistics from the registry
 * - Counts orphan tunnel processes in the system
 * - Used by the health check endpoint and monitoring
 * @example
 * health := server.GetHealthz()
 * fmt.Printf("Server status: %s, Uptime: %s\n", health.Status, health.Uptime)
 */
func (s *Server) GetHealthz() models.HealthResponse {
	// 计算服务运行时间
	uptime := time.Since(s.startTime)

	orphanCount := 0
	if orphans, err := s.manager.FindOrphanedSessions(); err == nil {
		orphanCount = len(orphans)
	}

	return models.HealthResponse{
		Version:   env.Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    uptime.String(),
		Metrics: models.Metrics{
			TotalRequests:   GetTotalRequestCount(),
			ErrorRequests:   GetTotalErrorCount(),
			ActiveSessions:  s.manager.ActiveSessionCount(),
			SessionsStarted: GetSessionsStartedCount(),
			SessionsStopped: GetSessionsStoppedCount(),
			OrphanProcesses: orphanCount,
		},
	}
}

/**
 * Shutdown 守护进程退出前的收尾
 * @description
 * - 停掉所有活跃会话并清理它们的缓存
 * - 删除运行状态文件
 */
func (s *Server) Shutdown() {
	s.manager.CloseAllSessions()
	if err := os.Remove(env.StatePath()); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to remove server state file: %v", err)
	}
}
