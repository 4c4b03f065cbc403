package session

import (
	"encoding/json"
	"fmt"
	"log"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/rpc"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var (
	stopRef        string
	stopLocalPort  int
	stopRemotePort int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop port forwarding session",
	Run: func(cmd *cobra.Command, args []string) {
		if stopRef == "" {
			log.Fatal("Must specify session id or instance id (--session)")
		}

		// 尝试使用 RPC 客户端连接 ssm-keeper 服务器
		rpcClient := rpc.NewHTTPClient(nil)
		if tryStopSessionViaRPC(rpcClient, stopRef, stopLocalPort, stopRemotePort) {
			// RPC 调用成功，直接返回
			return
		}

		// RPC 连接失败，回退到本地处理，先从缓存接管遗留会话
		log.Printf("Failed to connect to ssm-keeper server via RPC, falling back to local session management")
		manager := services.NewSessionManager(&config.Config)
		manager.LoadCache()
		result, err := manager.StopPortForwarding(stopRef, stopLocalPort, stopRemotePort)
		if err != nil {
			log.Fatalf("Failed to stop session: %v", err)
		}
		fmt.Println(result.Message)
	},
}

// tryStopSessionViaRPC 尝试通过 RPC 连接停止会话
/**
 * Try to stop session via RPC connection to ssm-keeper server
 * @param {rpc.HTTPClient} rpcClient - RPC client instance
 * @param {string} ref - Session id or instance id
 * @param {int} localPort - Local port narrowing instance id lookup, 0 matches any
 * @param {int} remotePort - Remote port narrowing instance id lookup, 0 matches any
 * @returns {bool} True if the server handled the request, false when unreachable
 * @description
 * - Attempts to connect to ssm-keeper server via Unix socket
 * - Calls DELETE /ssm-keeper/api/v1/sessions/{ref} endpoint to stop session
 * - Exits the process when the server answers with an error status,
 *   the server owns the subprocess so a local retry cannot do better
 * - Returns false only on transport failure so the caller can fall back
 * @example
 * handled := tryStopSessionViaRPC(rpcClient, "i-0abc123def456", 5432, 5432)
 * if handled {
 *     fmt.Println("Session stopped via RPC")
 * }
 */
func tryStopSessionViaRPC(rpcClient rpc.HTTPClient, ref string, localPort, remotePort int) bool {
	path := fmt.Sprintf("/ssm-keeper/api/v1/sessions/%s", ref)
	params := map[string]interface{}{}
	if localPort > 0 {
		params["localPort"] = localPort
	}
	if remotePort > 0 {
		params["remotePort"] = remotePort
	}

	// 尝试调用 ssm-keeper 的 RESTful API DELETE 方法
	response, err := rpcClient.Delete(path, params)
	if err != nil {
		log.Printf("Failed to call ssm-keeper API: %v", err)
		return false
	}

	// 检查HTTP状态码是否在200-299范围内
	if response.StatusCode >= 200 && response.StatusCode <= 299 {
		var result models.StopSessionResult
		if err := json.Unmarshal(response.Body, &result); err == nil && result.Message != "" {
			fmt.Println(result.Message)
			return true
		}
		fmt.Printf("Successfully stopped session via ssm-keeper server, status code: %d\n", response.StatusCode)
		return true
	}

	// 服务器已受理请求但停止失败，进程归服务器管，本地不再插手
	log.Fatalf("ssm-keeper server failed to stop session: %s", response.Error)
	return true
}

func init() {
	stopCmd.Flags().SortFlags = false
	stopCmd.Flags().StringVarP(&stopRef, "session", "s", "", "Session id or instance id")
	stopCmd.Flags().IntVarP(&stopLocalPort, "local-port", "l", 0, "Local port")
	stopCmd.Flags().IntVarP(&stopRemotePort, "remote-port", "r", 0, "Remote port")
	sessionCmd.AddCommand(stopCmd)
}
