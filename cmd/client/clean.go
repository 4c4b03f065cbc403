package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/config"
	"ssm-keeper/internal/env"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/utils"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up the server, all tunnel processes and cache",
	Long:  `Stop the ssm-keeper server, force kill every tunnel subprocess and wipe the session cache. The full reset path for a wedged installation.`,
	Run: func(cmd *cobra.Command, args []string) {
		cleanAll()
	},
}

/**
 * Clean up the server process, tunnel subprocesses and cached state
 * @returns {error} Returns error if any cleanup step fails, nil on success
 * @description
 * - Stops the running ssm-keeper server recorded in the state file
 * - Force kills every process matching the tunnel signature
 * - Removes the session cache directory
 * - Removes leftover run files (state file and Unix socket)
 */
func cleanAll() error {
	fmt.Println("Starting cleanup process...")
	// 1. 停掉还在运行的ssm-keeper服务进程
	stopRunningServer()

	// 2. 强杀所有隧道子进程
	manager := services.NewSessionManager(&config.Config)
	if result, err := manager.ForceKillOrphanedSessions(); err == nil {
		fmt.Printf("Killed %d of %d tunnel process(es)\n", result.Killed, result.Found)
	} else {
		fmt.Printf("Failed to sweep tunnel processes: %v\n", err)
	}

	// 3. 清理会话缓存目录
	cleanCacheDirectory()

	// 4. 移除残留的运行状态文件
	os.Remove(env.StatePath())
	os.Remove(env.SocketPath())
	fmt.Println("Clean completed successfully")
	return nil
}

// 按状态文件里的PID停掉服务进程，等不到退出就不再纠缠
func stopRunningServer() {
	data, err := os.ReadFile(env.StatePath())
	if err != nil {
		return
	}
	var state models.ServerState
	if err := json.Unmarshal(data, &state); err != nil || state.Pid <= 0 {
		return
	}
	if running, err := utils.IsProcessRunning(state.Pid); err != nil || !running {
		return
	}

	fmt.Printf("Stopping ssm-keeper server (PID: %d)\n", state.Pid)
	if err := utils.TerminateProcessGracefully(state.Pid); err != nil {
		utils.KillProcessByPID(state.Pid)
	}
	utils.WaitProcessExit(state.Pid, 5*time.Second, 100*time.Millisecond)
}

func cleanCacheDirectory() {
	dir := filepath.Join(config.Config.Directory.Cache, "sessions")
	if err := os.RemoveAll(dir); err != nil {
		fmt.Printf("Failed to clean session cache: %v\n", err)
		return
	}
	fmt.Println("Session cache cleaned successfully")
}

func init() {
	root.RootCmd.AddCommand(cleanCmd)
}
