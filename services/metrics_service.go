package services

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ssm-keeper/internal/logger"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeper_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_request_errors_total",
			Help: "HTTP requests answered with status >= 400",
		},
		[]string{"route"},
	)

	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keeper_sessions_started_total",
			Help: "Port forwarding sessions started successfully",
		},
	)

	sessionsStopped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keeper_sessions_stopped_total",
			Help: "Port forwarding sessions stopped",
		},
	)

	sessionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_session_failures_total",
			Help: "Session launch and termination failures by kind",
		},
		[]string{"kind"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_active_sessions",
			Help: "Sessions currently tracked in the registry",
		},
	)

	orphanProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keeper_orphan_processes",
			Help: "Processes in the OS table matching the tunnel signature",
		},
	)

	orphansKilled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keeper_orphans_killed_total",
			Help: "Tunnel processes force killed by orphan reaping",
		},
	)

	launchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keeper_session_launch_seconds",
			Help:    "Time from spawn until the session id appeared",
			Buckets: prometheus.DefBuckets,
		},
	)

	terminationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keeper_session_termination_seconds",
			Help:    "Time from stop request until the process exited",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(sessionsStarted)
	prometheus.MustRegister(sessionsStopped)
	prometheus.MustRegister(sessionFailures)
	prometheus.MustRegister(activeSessions)
	prometheus.MustRegister(orphanProcesses)
	prometheus.MustRegister(orphansKilled)
	prometheus.MustRegister(launchDuration)
	prometheus.MustRegister(terminationDuration)
}

// Prometheus计数器读不回来，健康检查要用的数字另记一份
var (
	totalRequests int64
	totalErrors   int64
	startedTotal  int64
	stoppedTotal  int64
)

func IncrementRequestCount(route string) {
	atomic.AddInt64(&totalRequests, 1)
	requestCount.WithLabelValues(route).Inc()
}

func RecordRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}

func IncrementErrorCount(route string) {
	atomic.AddInt64(&totalErrors, 1)
	requestErrors.WithLabelValues(route).Inc()
}

func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&totalErrors)
}

// RecordSessionStarted 会话成功启动时调用
func RecordSessionStarted() {
	atomic.AddInt64(&startedTotal, 1)
	sessionsStarted.Inc()
}

// RecordSessionStopped 会话停止完成时调用
func RecordSessionStopped() {
	atomic.AddInt64(&stoppedTotal, 1)
	sessionsStopped.Inc()
}

// RecordSessionFailure 会话操作失败时按分类计数
func RecordSessionFailure(kind string) {
	sessionFailures.WithLabelValues(kind).Inc()
}

// RecordSessionLaunchDuration 启动成功后记录从拉起到拿到会话ID的耗时
func RecordSessionLaunchDuration(seconds float64) {
	launchDuration.Observe(seconds)
}

// RecordSessionTerminationDuration 终止成功后记录从发信号到进程退出的耗时
func RecordSessionTerminationDuration(seconds float64) {
	terminationDuration.Observe(seconds)
}

// SetActiveSessions 刷新活跃会话数
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// SetOrphanProcesses 刷新进程表里匹配隧道特征的进程数
func SetOrphanProcesses(n int) {
	orphanProcesses.Set(float64(n))
}

// AddOrphansKilled 清场后累加杀掉的进程数
func AddOrphansKilled(n int) {
	if n > 0 {
		orphansKilled.Add(float64(n))
	}
}

func GetSessionsStartedCount() int64 {
	return atomic.LoadInt64(&startedTotal)
}

func GetSessionsStoppedCount() int64 {
	return atomic.LoadInt64(&stoppedTotal)
}

const defaultPushTimeout = 30 * time.Second

/**
 * CollectAndPushMetrics 把当前指标推送到Pushgateway
 * @param {string} pushGatewayAddr - Pushgateway地址
 * @param {time.Duration} timeout - 推送超时，非正值使用默认30秒
 * @returns {error} 地址为空或推送失败返回错误
 */
func CollectAndPushMetrics(pushGatewayAddr string, timeout time.Duration) error {
	if pushGatewayAddr == "" {
		return fmt.Errorf("pushgateway address is empty")
	}
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	pusher := push.New(pushGatewayAddr, "ssm-keeper").
		Client(&http.Client{Timeout: timeout}).
		Gatherer(prometheus.DefaultGatherer)
	if err := pusher.Push(); err != nil {
		logger.Errorf("Failed to push metrics to '%s': %v", pushGatewayAddr, err)
		return err
	}
	logger.Debugf("Metrics pushed to '%s'", pushGatewayAddr)
	return nil
}
