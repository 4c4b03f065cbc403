package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ssm-keeper/cmd/root"
	"ssm-keeper/controllers"
	"ssm-keeper/internal/config"
	"ssm-keeper/internal/env"
	"ssm-keeper/internal/logger"
	"ssm-keeper/internal/middleware"
	"ssm-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务",
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(context.Background()); err != nil {
			logger.Fatal(err)
		}
	},
}

/**
 * Start the keeper daemon
 * @param {context.Context} ctx - Context canceling the daemon
 * @returns {error} Returns error if startup fails
 * @description
 * - Builds the Gin router with metrics middleware and API controllers
 * - Listens on the configured TCP address, plus a Unix socket where supported
 * - Recovers cached sessions and writes the run state file
 * - Starts the session monitoring and metrics reporting loops
 * - Blocks until a termination signal arrives, then stops all sessions
 */
func startServer(ctx context.Context) error {
	cfg := &config.Config
	gin.SetMode(cfg.Server.Mode)

	// 初始化服务
	router := gin.Default()
	router.Use(middleware.MetricsMiddleware())
	env.Daemon = true

	srv := services.NewServer(cfg)

	// 注册API路由
	apiController := controllers.NewAPIController(srv)
	apiController.RegisterRoutes(router)
	sessionController := controllers.NewSessionController(srv.Sessions())
	sessionController.RegisterRoutes(router)

	addrs := []ListenAddr{
		{Network: "tcp", Address: cfg.Server.Address},
	}
	if IsUnixSocketSupported() {
		addrs = append(addrs, ListenAddr{Network: "unix", Address: env.SocketPath()})
	}
	listeners, err := CreateListeners(addrs)
	if len(listeners) == 0 {
		return fmt.Errorf("启动监听失败: %v", err)
	}

	// state文件里写实际监听到的端口，CLI回退TCP时按它连接
	for _, ln := range listeners {
		if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
			env.ListenPort = tcpAddr.Port
		}
	}

	// 恢复缓存会话，写入运行状态文件
	if err := srv.Init(); err != nil {
		return fmt.Errorf("初始化服务失败: %v", err)
	}

	// 启动监控和指标上报
	go srv.StartMonitoring()
	go srv.StartReportMetrics()

	serveErr := make(chan error, len(listeners))
	for _, ln := range listeners {
		go func(l net.Listener) {
			logger.Infof("Listening on %s://%s", l.Addr().Network(), l.Addr().String())
			serveErr <- http.Serve(l, router)
		}(ln)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal %v, shutting down", sig)
	case err := <-serveErr:
		logger.Errorf("HTTP server stopped: %v", err)
	case <-ctx.Done():
	}

	// 停止所有会话，删除状态文件
	srv.Shutdown()
	for _, ln := range listeners {
		ln.Close()
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
