package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/rpc"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var (
	startInstance   string
	startLocalPort  int
	startRemotePort int
	startProfile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start port forwarding session",
	Run: func(cmd *cobra.Command, args []string) {
		if startInstance == "" {
			log.Fatal("Must specify instance id (--instance)")
		}
		if startLocalPort <= 0 || startRemotePort <= 0 {
			log.Fatal("Must specify local and remote ports (--local-port, --remote-port)")
		}

		req := &models.CreateSessionRequest{
			InstanceID: startInstance,
			LocalPort:  startLocalPort,
			RemotePort: startRemotePort,
			Profile:    startProfile,
		}

		// 尝试使用 RPC 客户端连接 ssm-keeper 服务器
		// 会话建立最长要等launch_timeout，客户端超时必须放宽
		rpcCfg := rpc.DefaultHTTPConfig()
		rpcCfg.Timeout = config.Config.Session.LaunchTimeout + 15*time.Second
		rpcClient := rpc.NewHTTPClient(rpcCfg)
		if rpcClient != nil && tryStartSessionViaRPC(rpcClient, req) {
			// RPC 调用成功，直接返回
			return
		}

		// RPC 连接失败，回退到本地启动，子进程挂到独立进程组里活过CLI退出
		log.Printf("Failed to connect to ssm-keeper server via RPC, falling back to local session management")
		manager := services.NewSessionManager(&config.Config)
		manager.SetDetached(true)
		manager.LoadCache()
		sess, err := manager.StartPortForwarding(context.Background(), req)
		if err != nil {
			log.Fatalf("Failed to start session: %v", err)
		}
		fmt.Printf("Successfully started session %s for instance %s, local port: %d, remote port: %d\n",
			sess.SessionID, sess.InstanceID, sess.LocalPort, sess.RemotePort)
	},
}

// tryStartSessionViaRPC 尝试通过 RPC 连接启动会话
/**
 * Try to start session via RPC connection to ssm-keeper server
 * @param {rpc.HTTPClient} rpcClient - RPC client instance
 * @param {*models.CreateSessionRequest} req - Session request parameters
 * @returns {bool} True if the server handled the request, false when unreachable
 * @description
 * - Attempts to connect to ssm-keeper server via Unix socket
 * - Calls /ssm-keeper/api/v1/sessions endpoint to create session
 * - Exits the process when the server answers with an error status,
 *   a local retry would race the server over the same local port
 * - Returns false only on transport failure so the caller can fall back
 * @example
 * handled := tryStartSessionViaRPC(rpcClient, req)
 * if handled {
 *     fmt.Println("Session started via RPC")
 * }
 */
func tryStartSessionViaRPC(rpcClient rpc.HTTPClient, req *models.CreateSessionRequest) bool {
	// 尝试调用 ssm-keeper 的 RESTful API
	response, err := rpcClient.Post("/ssm-keeper/api/v1/sessions", req)
	if err != nil {
		log.Printf("Failed to call ssm-keeper API: %v", err)
		return false
	}

	// 检查HTTP状态码是否在200-299范围内
	if response.StatusCode >= 200 && response.StatusCode <= 299 {
		var sess models.Session
		if err := json.Unmarshal(response.Body, &sess); err == nil && sess.SessionID != "" {
			fmt.Printf("Successfully started session via ssm-keeper server: %s, local port: %d, remote port: %d\n",
				sess.SessionID, sess.LocalPort, sess.RemotePort)
			return true
		}
		// 即使响应体解析不出来，只要状态码在200-299范围内，也认为成功
		fmt.Printf("Successfully started session via ssm-keeper server, status code: %d\n", response.StatusCode)
		return true
	}

	// 服务器已受理请求但启动失败，不回退本地重试
	log.Fatalf("ssm-keeper server failed to start session: %s", response.Error)
	return true
}

func init() {
	startCmd.Flags().SortFlags = false
	startCmd.Flags().StringVarP(&startInstance, "instance", "i", "", "EC2 instance id")
	startCmd.Flags().IntVarP(&startLocalPort, "local-port", "l", 0, "Local port")
	startCmd.Flags().IntVarP(&startRemotePort, "remote-port", "r", 0, "Remote port")
	startCmd.Flags().StringVarP(&startProfile, "profile", "p", "", "AWS profile name")

	sessionCmd.AddCommand(startCmd)
}
