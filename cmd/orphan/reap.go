package orphan

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

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Force kill all tunnel processes",
	Long:  `Kill every process matching the tunnel signature without graceful signaling. Sessions tracked by a running server are killed too, use this as the emergency cleanup path.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 尝试使用 RPC 客户端连接 ssm-keeper 服务器
		rpcClient := rpc.NewHTTPClient(nil)
		if tryReapOrphansViaRPC(rpcClient) {
			return
		}

		// RPC 连接失败，本地直接扫表强杀
		log.Printf("Failed to connect to ssm-keeper server via RPC, falling back to local process sweep")
		manager := services.NewSessionManager(&config.Config)
		manager.LoadCache()
		result, err := manager.ForceKillOrphanedSessions()
		if err != nil {
			log.Fatalf("Failed to reap orphans: %v", err)
		}
		printKillResult(result)
	},
}

/**
 * Try to reap orphans via RPC connection to ssm-keeper server
 * @param {rpc.HTTPClient} rpcClient - RPC client instance
 * @returns {bool} True if the server handled the request, false when unreachable
 * @description
 * - Calls DELETE /ssm-keeper/api/v1/orphans endpoint
 * - Returns false only on transport failure so the caller can fall back
 */
func tryReapOrphansViaRPC(rpcClient rpc.HTTPClient) bool {
	response, err := rpcClient.Delete("/ssm-keeper/api/v1/orphans", nil)
	if err != nil {
		log.Printf("Failed to call ssm-keeper API: %v", err)
		return false
	}

	if response.StatusCode >= 200 && response.StatusCode <= 299 {
		var result models.OrphanKillResult
		if err := json.Unmarshal(response.Body, &result); err == nil {
			printKillResult(&result)
			return true
		}
		fmt.Printf("Orphan reap finished, status code: %d\n", response.StatusCode)
		return true
	}

	log.Fatalf("ssm-keeper server failed to reap orphans: %s", response.Error)
	return true
}

func printKillResult(result *models.OrphanKillResult) {
	fmt.Printf("Found %d process(es), killed %d\n", result.Found, result.Killed)
	for _, failed := range result.Failed {
		fmt.Printf("Failed to kill pid %d (%s)\n", failed.Pid, failed.Executable)
	}
}

func init() {
	orphanCmd.AddCommand(reapCmd)
}
