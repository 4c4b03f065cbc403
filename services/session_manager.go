package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
)

/**
 * SessionManager 端口转发会话的编排入口
 * @description
 * - 持有注册表、终止器、输出分类器和孤儿扫描器
 * - 显式构造，不做进程级单例，生命周期由调用方掌握
 * - 成功的会话落盘到缓存目录，进程重启后可以恢复接管
 */
type SessionManager struct {
	cfg        *config.AppConfig
	registry   *SessionRegistry
	terminator *SessionTerminator
	classifier OutputClassifier
	scanner    *OrphanScanner
	detach     bool
}

func NewSessionManager(cfg *config.AppConfig) *SessionManager {
	mgr := &SessionManager{
		cfg:        cfg,
		registry:   NewSessionRegistry(),
		terminator: NewSessionTerminator(&cfg.Session),
		classifier: NewOutputClassifier(cfg.Session.ReadyMarker),
	}
	mgr.scanner = NewOrphanScanner(cfg.Orphan.Patterns, mgr.registry)
	return mgr
}

// SetDetached 控制子进程是否脱离进程组，CLI直启模式使用
func (m *SessionManager) SetDetached(detach bool) {
	m.detach = detach
}

// Registry 暴露注册表，供健康检查等只读用途
func (m *SessionManager) Registry() *SessionRegistry {
	return m.registry
}

// ActiveSessionCount 当前注册表里的会话数
func (m *SessionManager) ActiveSessionCount() int {
	return m.registry.Len()
}

// 参数模板的展开数据
type commandData struct {
	InstanceID   string
	LocalPort    int
	RemotePort   int
	DocumentName string
	Profile      string
	Region       string
}

/**
 * buildCommand 生成一次会话的完整命令行
 * @param {SessionInstance} si - 会话实例
 * @returns {string} 命令
 * @returns {[]string} 参数
 * @returns {error} 模板展开失败时返回错误
 * @description
 * - 参数模板来自配置，逐个展开
 * - profile/region解析结果非空时追加对应参数
 */
func (m *SessionManager) buildCommand(si *SessionInstance) (string, []string, error) {
	data := commandData{
		InstanceID:   si.InstanceID,
		LocalPort:    si.LocalPort,
		RemotePort:   si.RemotePort,
		DocumentName: m.cfg.Session.DocumentName,
		Profile:      si.Profile,
		Region:       si.Region,
	}
	command, args, err := utils.GetCommandLine(m.cfg.Session.Command, m.cfg.Session.Args, data)
	if err != nil {
		return "", nil, err
	}
	if si.Profile != "" {
		args = append(args, "--profile", si.Profile)
	}
	if si.Region != "" {
		args = append(args, "--region", si.Region)
	}
	return command, args, nil
}

/**
 * StartPortForwarding 启动一个端口转发会话
 * @param {context.Context} ctx - 上下文，取消时中止启动
 * @param {models.CreateSessionRequest} req - 会话请求
 * @returns {*models.Session} 成功返回活跃状态的会话
 * @returns {error} 失败分类见errors.go
 * @description
 * - 查重与占位插入在一次加锁里完成，并发的重复请求只会成功一个
 * - 本地端口已被占用时直接失败，不生成子进程
 * - 任何启动失败都会撤掉占位记录，注册表只保留成功的会话
 * - 成功后把会话落盘，进程重启后可恢复
 */
func (m *SessionManager) StartPortForwarding(ctx context.Context, req *models.CreateSessionRequest) (*models.Session, error) {
	if req.InstanceID == "" || req.LocalPort <= 0 || req.RemotePort <= 0 {
		return nil, fmt.Errorf("invalid session request: instance '%s', ports %d->%d",
			req.InstanceID, req.LocalPort, req.RemotePort)
	}

	profile, region := config.ResolveProfile(req.Profile)
	si := NewSessionInstance(req.InstanceID, req.LocalPort, req.RemotePort, profile, region)
	if err := m.registry.Put(si); err != nil {
		return nil, fmt.Errorf("%w: '%s'", err, si.title())
	}

	if !utils.CheckPortAvailable(req.LocalPort) {
		m.registry.Remove(si.Key())
		return nil, fmt.Errorf("%w: local port %d is already in use", ErrSpawnFailed, req.LocalPort)
	}

	command, args, err := m.buildCommand(si)
	if err != nil {
		m.registry.Remove(si.Key())
		return nil, fmt.Errorf("%w: build command line: %v", ErrSpawnFailed, err)
	}

	opts := LaunchOptions{
		Classifier: m.classifier,
		Timeout:    m.cfg.Session.LaunchTimeout,
		Settle:     m.cfg.Session.SettleDelay,
		Poll:       m.cfg.Session.PollInterval,
		Detach:     m.detach,
	}
	launchStart := time.Now()
	if err := si.StartSession(ctx, command, args, opts); err != nil {
		m.registry.Remove(si.Key())
		RecordSessionFailure(ErrorKind(err))
		return nil, err
	}

	m.saveSession(si)
	RecordSessionStarted()
	RecordSessionLaunchDuration(time.Since(launchStart).Seconds())
	SetActiveSessions(m.registry.Len())
	snap := si.Snapshot()
	return &snap, nil
}

/**
 * StopPortForwarding 停止一个端口转发会话
 * @param {string} ref - 会话ID或实例ID
 * @param {int} localPort - 本地端口，按实例ID查找时0为通配
 * @param {int} remotePort - 远端端口，0为通配
 * @returns {*models.StopSessionResult} 停止结果
 * @returns {error} 分类见errors.go
 * @description
 * - ref先按会话ID匹配，再按实例ID匹配
 * - 状态门卫在第一个阻塞点之前完成，同一会话并发stop只放行一个
 * - 进程早已退出的终态会话只做清理，不走信号流程
 * - 终止失败时会话保持stopping留在注册表里，便于重试或孤儿清理
 */
func (m *SessionManager) StopPortForwarding(ref string, localPort, remotePort int) (*models.StopSessionResult, error) {
	si := m.registry.GetBySessionID(ref)
	if si == nil {
		si = m.registry.Get(ref, localPort, remotePort)
	}
	if si == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrSessionNotFound, ref)
	}

	si.mutex.Lock()
	switch si.Status {
	case models.StatusStopping:
		si.mutex.Unlock()
		return nil, fmt.Errorf("%w: session '%s'", ErrStopInFlight, si.title())
	case models.StatusStarting:
		si.mutex.Unlock()
		return nil, fmt.Errorf("%w: session '%s'", ErrSessionBusy, si.title())
	case models.StatusStopped, models.StatusFailed:
		si.mutex.Unlock()
		m.registry.Remove(si.Key())
		m.removeSessionCache(si.Key())
		snap := si.Snapshot()
		return &models.StopSessionResult{
			SessionID:         snap.SessionID,
			InstanceID:        snap.InstanceID,
			ProcessTerminated: true,
			PortReleased:      utils.CheckPortListenable(snap.LocalPort),
			Message:           "session already exited",
		}, nil
	default:
		si.Status = models.StatusStopping
		si.mutex.Unlock()
	}

	stopStart := time.Now()
	result, err := m.terminator.Stop(si)
	if err != nil {
		// 保持stopping留在注册表，缓存同步，重启后还能找到它
		m.saveSession(si)
		RecordSessionFailure(ErrorKind(err))
		return nil, err
	}
	RecordSessionTerminationDuration(time.Since(stopStart).Seconds())

	si.mutex.Lock()
	si.Status = models.StatusStopped
	if si.LastExitReason == "" {
		si.LastExitReason = "stopped by user"
	}
	if si.LastExitTime.IsZero() {
		si.LastExitTime = time.Now()
	}
	si.mutex.Unlock()

	m.registry.Remove(si.Key())
	m.removeSessionCache(si.Key())
	RecordSessionStopped()
	SetActiveSessions(m.registry.Len())

	snap := si.Snapshot()
	message := "session stopped"
	if !result.PortReleased {
		message = fmt.Sprintf("session stopped, local port %d may still be in use", snap.LocalPort)
	}
	return &models.StopSessionResult{
		SessionID:         snap.SessionID,
		InstanceID:        snap.InstanceID,
		ProcessTerminated: result.ProcessTerminated,
		PortReleased:      result.PortReleased,
		Message:           message,
	}, nil
}

/**
 * ListSessions 列出注册表中的全部会话
 * @returns {[]models.Session} 会话快照列表
 */
func (m *SessionManager) ListSessions() []models.Session {
	sessions := []models.Session{}
	for _, si := range m.registry.All() {
		sessions = append(sessions, si.Snapshot())
	}
	return sessions
}

/**
 * GetSession 查找单个会话
 * @param {string} ref - 会话ID或实例ID
 * @param {int} localPort - 本地端口，按实例ID查找时0为通配
 * @param {int} remotePort - 远端端口，0为通配
 * @returns {*models.Session} 会话快照
 * @returns {error} 未找到返回ErrSessionNotFound
 */
func (m *SessionManager) GetSession(ref string, localPort, remotePort int) (*models.Session, error) {
	si := m.registry.GetBySessionID(ref)
	if si == nil {
		si = m.registry.Get(ref, localPort, remotePort)
	}
	if si == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrSessionNotFound, ref)
	}
	snap := si.Snapshot()
	return &snap, nil
}

/**
 * FindOrphanedSessions 查找系统里符合隧道特征的进程
 * @returns {[]models.OrphanProcess} 匹配的进程列表
 */
func (m *SessionManager) FindOrphanedSessions() ([]models.OrphanProcess, error) {
	return m.scanner.FindOrphans()
}

/**
 * ForceKillOrphanedSessions 强杀所有符合隧道特征的进程
 * @returns {*models.OrphanKillResult} 清理结果
 * @description
 * - 注册表里登记过的进程同样会被杀掉，属于清场操作
 * - 杀完后把注册表里进程已死的会话清理掉
 */
func (m *SessionManager) ForceKillOrphanedSessions() (*models.OrphanKillResult, error) {
	result, err := m.scanner.ForceKillAll()
	if err != nil {
		return nil, err
	}
	AddOrphansKilled(result.Killed)
	m.sweepDeadSessions()
	return result, nil
}

/**
 * CheckSessions 巡检所有会话并清理进程已死的条目
 * @returns {[]models.SessionCheckResult} 每个会话的巡检结果
 * @description
 * - 端口探测用绑定方式，不会真的连到隧道上触发远端连接
 * - starting状态的会话跳过，启动流程自己负责收尾
 */
func (m *SessionManager) CheckSessions() []models.SessionCheckResult {
	results := []models.SessionCheckResult{}
	for _, si := range m.registry.All() {
		snap := si.Snapshot()
		if snap.Status == models.StatusStarting {
			continue
		}
		alive := si.IsAlive()
		portBound := !utils.CheckPortListenable(snap.LocalPort)
		results = append(results, models.SessionCheckResult{
			SessionID:    snap.SessionID,
			InstanceID:   snap.InstanceID,
			LocalPort:    snap.LocalPort,
			RemotePort:   snap.RemotePort,
			Status:       string(snap.Status),
			Pid:          snap.Pid,
			ProcessAlive: alive,
			PortBound:    portBound,
			StartTime:    snap.StartTime.Format(time.RFC3339),
		})
	}
	m.sweepDeadSessions()
	return results
}

// 把进程已经退出的会话从注册表和缓存里清掉
func (m *SessionManager) sweepDeadSessions() {
	for _, si := range m.registry.All() {
		snap := si.Snapshot()
		if snap.Status == models.StatusStarting {
			continue
		}
		if si.IsAlive() {
			continue
		}
		if snap.Status == models.StatusActive {
			si.markFailed("process exited unexpectedly")
		}
		logger.Warnf("Session '%s' (PID: %d) no longer running, cleaning up", si.title(), snap.Pid)
		m.registry.Remove(si.Key())
		m.removeSessionCache(si.Key())
	}
}

/**
 * CloseAllSessions 停止全部活跃会话，守护进程退出前调用
 */
func (m *SessionManager) CloseAllSessions() {
	for _, si := range m.registry.All() {
		snap := si.Snapshot()
		if snap.Status != models.StatusActive {
			continue
		}
		if _, err := m.StopPortForwarding(snap.InstanceID, snap.LocalPort, snap.RemotePort); err != nil {
			logger.Warnf("Failed to stop session '%s': %v", si.title(), err)
		}
	}
}

// 会话缓存文件路径，一个会话一个JSON文件
func (m *SessionManager) sessionCachePath(key models.SessionKey) string {
	dir := filepath.Join(m.cfg.Directory.Cache, "sessions")
	os.MkdirAll(dir, 0755)
	return filepath.Join(dir, fmt.Sprintf("%s-%d.json", key.InstanceID, key.LocalPort))
}

// 把会话落盘，失败只告警，不影响主流程
func (m *SessionManager) saveSession(si *SessionInstance) {
	snap := si.Snapshot()
	fname := m.sessionCachePath(snap.Key())
	data, err := json.Marshal(&snap)
	if err != nil {
		logger.Warnf("Failed to marshal session '%s': %v", si.title(), err)
		return
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		logger.Warnf("Failed to save session '%s' to '%s': %v", si.title(), fname, err)
	}
}

func (m *SessionManager) removeSessionCache(key models.SessionKey) {
	fname := m.sessionCachePath(key)
	if err := os.Remove(fname); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to remove session cache '%s': %v", fname, err)
	}
}

/**
 * LoadCache 从缓存目录恢复会话
 * @returns {int} 恢复的会话数
 * @description
 * - 每个JSON文件对应一个会话，读不出来的跳过
 * - 恢复时核对PID上的进程还在且可执行名匹配，不在的视为残留缓存直接清掉
 * - stopping状态的会话按原状态恢复，等待用户重试停止
 */
func (m *SessionManager) LoadCache() int {
	dir := filepath.Join(m.cfg.Directory.Cache, "sessions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Failed to read session cache directory '%s': %v", dir, err)
		}
		return 0
	}

	processName := utils.Path2ProcessName(m.cfg.Session.Command)
	recovered := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fname := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(fname)
		if err != nil {
			logger.Warnf("Failed to read session cache '%s': %v", fname, err)
			continue
		}
		var sess models.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			logger.Warnf("Invalid session cache '%s': %v", fname, err)
			os.Remove(fname)
			continue
		}
		if sess.InstanceID == "" || sess.LocalPort <= 0 || sess.Pid <= 0 {
			os.Remove(fname)
			continue
		}

		si := &SessionInstance{Session: sess}
		if err := si.AttachProcess(processName, sess.Pid); err != nil {
			// 进程已经不在了，缓存属于残留
			logger.Infof("Cached session '%s' is gone (PID: %d), removing cache", si.title(), sess.Pid)
			os.Remove(fname)
			continue
		}
		if err := m.registry.Put(si); err != nil {
			logger.Warnf("Failed to register cached session '%s': %v", si.title(), err)
			continue
		}
		recovered++
		logger.Infof("Session '%s' recovered from cache (PID: %d)", si.title(), sess.Pid)
	}
	return recovered
}
