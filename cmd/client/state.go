package client

import (
	"encoding/json"
	"fmt"
	"time"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/env"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/rpc"
	"ssm-keeper/internal/utils"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Displays ssm-keeper server states",
	Long:  `Displays ssm-keeper server states`,
	Run: func(cmd *cobra.Command, args []string) {
		showServerState()
	},
}

const stateExample = `  # Display server states
  ssm-keeper state`

func showServerState() {
	rpcClient := rpc.NewHTTPClient(nil)
	resp, err := rpcClient.Get("/ssm-keeper/api/v1/state", nil)
	if err != nil {
		fmt.Printf("ssm-keeper server is not running: %v\n", err)
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

	var respState models.ServerState
	if err := json.Unmarshal(resp.Body, &respState); err != nil {
		fmt.Printf("Failed to unmarshal state response: %v\n", err)
		return
	}

	// 成功反序列化，显示服务器状态
	displayStates(respState)
}

func displayStates(results models.ServerState) {
	fmt.Println("=== SSM Keeper Server States ===")
	fmt.Println()

	fmt.Printf("进程PID: %d\n", results.Pid)
	fmt.Printf("启动时间: %s\n", results.StartTime.Format(time.RFC3339))
	fmt.Println()

	fmt.Println("=== 监听信息 ===")
	fmt.Printf("TCP端口: %d\n", results.ListenPort)
	fmt.Printf("Unix socket: %s\n", results.SocketPath)
	fmt.Println()

	fmt.Println("=== 环境信息 ===")
	fmt.Printf("KeeperDir: %v\n", results.Env.KeeperDir)
	fmt.Printf("ListenPort: %v\n", results.Env.ListenPort)
	fmt.Printf("Version: %v\n", results.Env.Version)
	if warn := versionSkewWarning(results.Env.Version); warn != "" {
		fmt.Printf("⚠️ %s\n", warn)
	}
	fmt.Println()
}

// CLI升级后老版本服务器可能还在跑，两边版本能解析且不一致时提示
func versionSkewWarning(serverVersion string) string {
	sv := utils.ParseVersionNumber(serverVersion)
	cv := utils.ParseVersionNumber(env.Version)
	if sv == nil || cv == nil {
		return ""
	}
	switch utils.CompareVersions(*sv, *cv) {
	case -1:
		return fmt.Sprintf("server version %s is older than this CLI (%s), restart the server to pick up the upgrade", serverVersion, env.Version)
	case 1:
		return fmt.Sprintf("server version %s is newer than this CLI (%s), upgrade this binary", serverVersion, env.Version)
	}
	return ""
}

func init() {
	stateCmd.Flags().SortFlags = false
	stateCmd.Example = stateExample
	root.RootCmd.AddCommand(stateCmd)
}
