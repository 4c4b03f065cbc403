package client

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/config"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/rpc"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check session and server health",
	Long:  `Check session and server health by connecting to the ssm-keeper server via RPC and calling the check API`,
	Run: func(cmd *cobra.Command, args []string) {
		checkServerStatus()
	},
}

const checkExample = `  # Check server status
  ssm-keeper check`

/**
 * Check session health by connecting via RPC and calling check API
 * @returns {void} No return value, outputs results directly
 * @description
 * - Creates RPC client to connect to ssm-keeper server
 * - Calls /ssm-keeper/api/v1/check endpoint via RPC
 * - Falls back to a local check when the server is unreachable,
 *   adopting cached sessions first
 * - Displays check results if successful
 * @example
 * checkServerStatus()
 */
func checkServerStatus() {
	rpcClient := rpc.NewHTTPClient(nil)
	resp, err := rpcClient.Post("/ssm-keeper/api/v1/check", nil)
	if err != nil {
		// 服务器不在，本地巡检一轮
		log.Printf("Failed to connect to ssm-keeper server via RPC, falling back to local check")
		srv := services.NewServer(&config.Config)
		srv.Sessions().LoadCache()
		displayCheckResults(srv.Check())
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.Error != "" {
			fmt.Printf("ssm-keeper API returned error: %s\n", resp.Error)
			return
		}
		fmt.Printf("Unexpected response from ssm-keeper API\n")
		return
	}

	var checkResp models.CheckResponse
	if err := json.Unmarshal(resp.Body, &checkResp); err != nil {
		fmt.Printf("Failed to unmarshal check response: %v\n", err)
		return
	}

	// 成功反序列化，显示检查结果
	displayCheckResults(checkResp)
}

func displaySessions(sessions []models.SessionCheckResult) {
	if len(sessions) == 0 {
		return
	}
	fmt.Printf("=== 会话检查结果 (%d 项) ===\n", len(sessions))
	for _, sess := range sessions {
		statusIcon := "✅"
		if !sess.ProcessAlive || !sess.PortBound || sess.Status != string(models.StatusActive) {
			statusIcon = "❌"
		}

		fmt.Printf("%s 会话: %s", statusIcon, sess.InstanceID)
		if sess.SessionID != "" {
			fmt.Printf(" (%s)", sess.SessionID)
		}
		if sess.Pid > 0 {
			fmt.Printf(" (PID: %d)", sess.Pid)
		}
		fmt.Printf(" 端口: %d -> %d", sess.LocalPort, sess.RemotePort)
		fmt.Printf(" 状态: %s", sess.Status)
		if sess.ProcessAlive {
			fmt.Printf(" 进程存活")
		} else {
			fmt.Printf(" 进程已死")
		}
		if sess.PortBound {
			fmt.Printf(" 端口在听")
		} else {
			fmt.Printf(" 端口未监听")
		}
		fmt.Println()
	}
	fmt.Println()
}

func displayOrphans(orphans []models.OrphanProcess) {
	if len(orphans) == 0 {
		return
	}
	fmt.Printf("=== 隧道进程扫描结果 (%d 项) ===\n", len(orphans))
	for _, orphan := range orphans {
		statusIcon := "✅"
		if !orphan.Tracked {
			statusIcon = "❌"
		}
		fmt.Printf("%s PID %d (%s)", statusIcon, orphan.Pid, orphan.Executable)
		if orphan.Tracked {
			fmt.Printf(" 已登记")
		} else {
			fmt.Printf(" 未登记，疑似孤儿")
		}
		fmt.Println()
	}
	fmt.Println()
}

/**
 * Display formatted check results to user
 * @param {models.CheckResponse} results - Check results from server
 * @description
 * - Formats and displays overall system status
 * - Shows session and orphan process check results
 * - Shows summary statistics
 */
func displayCheckResults(results models.CheckResponse) {
	fmt.Println("=== SSM Keeper Status Check ===")
	fmt.Println()

	// Display timestamp
	fmt.Printf("检查时间: %s\n", results.Timestamp.Format(time.RFC3339))
	fmt.Println()

	// Display overall status
	statusIcon := ""
	switch results.OverallStatus {
	case "warning":
		statusIcon = "⚠️"
	case "error":
		statusIcon = "❌"
	case "healthy":
		statusIcon = "✅"
	default:
		statusIcon = "❓"
	}
	fmt.Printf("%s 总体状态: %s\n", statusIcon, results.OverallStatus)
	fmt.Println()

	// Display statistics
	fmt.Printf("总检查项: %d\n", results.TotalChecks)
	fmt.Printf("通过检查: %d\n", results.PassedChecks)
	fmt.Printf("失败检查: %d\n", results.FailedChecks)
	fmt.Println()

	displaySessions(results.Sessions)
	displayOrphans(results.Orphans)

	fmt.Println("=== 检查完成 ===")
}

func init() {
	checkCmd.Flags().SortFlags = false
	checkCmd.Example = checkExample
	root.RootCmd.AddCommand(checkCmd)
}
