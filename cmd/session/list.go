package session

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/rpc"
	"ssm-keeper/internal/utils"
	"ssm-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var (
	listInstance string
	listPort     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all port forwarding sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listSessions(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * List session information with filtering
 * @returns {error} Returns error if listing fails, nil on success
 * @description
 * - Fetches sessions from the running server, falling back to the
 *   local cache when the server is unreachable
 * - Filters by instance id and/or local port if specified
 * - Uses utils.PrintFormat for formatted output
 */
func listSessions() error {
	sessions, ok := tryListSessionsViaRPC(rpc.NewHTTPClient(nil))
	if !ok {
		// 服务器不在，从缓存接管遗留会话后列出本地视图
		manager := services.NewSessionManager(&config.Config)
		manager.LoadCache()
		sessions = manager.ListSessions()
	}

	// Filter sessions based on instance and port parameters
	var filtered []models.Session
	for _, sess := range sessions {
		if listInstance != "" && sess.InstanceID != listInstance {
			continue
		}
		if listPort != 0 && sess.LocalPort != listPort {
			continue
		}
		filtered = append(filtered, sess)
	}

	if len(filtered) == 0 {
		if listInstance != "" || listPort != 0 {
			fmt.Printf("No matching sessions found")
			if listInstance != "" {
				fmt.Printf(" (instance: %s", listInstance)
				if listPort != 0 {
					fmt.Printf(", port: %d", listPort)
				}
				fmt.Print(")")
			} else if listPort != 0 {
				fmt.Printf(" (port: %d)", listPort)
			}
			fmt.Println()
		} else {
			fmt.Println("No active sessions")
		}
		return nil
	}

	return listAllSessions(filtered)
}

/**
 * Try to fetch the session list from the running ssm-keeper server
 * @param {rpc.HTTPClient} rpcClient - RPC client instance
 * @returns {[]models.Session} Sessions reported by the server
 * @returns {bool} True if the server answered, false when unreachable
 */
func tryListSessionsViaRPC(rpcClient rpc.HTTPClient) ([]models.Session, bool) {
	response, err := rpcClient.Get("/ssm-keeper/api/v1/sessions", nil)
	if err != nil {
		log.Printf("Failed to call ssm-keeper API: %v", err)
		return nil, false
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		log.Printf("ssm-keeper API returned error: %s", response.Error)
		return nil, false
	}
	var sessions []models.Session
	if err := json.Unmarshal(response.Body, &sessions); err != nil {
		log.Printf("Failed to parse session list: %v", err)
		return nil, false
	}
	return sessions, true
}

/**
 *	Fields displayed in list format
 */
type Session_Columns struct {
	SessionID  string `json:"session_id"`
	InstanceID string `json:"instance_id"`
	LocalPort  int    `json:"local_port"`
	RemotePort int    `json:"remote_port"`
	Status     string `json:"status"`
	Pid        int    `json:"pid"`
	Healthy    string `json:"healthy"`
	StartTime  string `json:"start_time"`
}

/**
 * List all sessions with formatted output
 * @param {[]models.Session} sessions - List of sessions to display
 * @returns {error} Returns error if listing fails, nil on success
 * @description
 * - Formats session data for display
 * - Uses utils.PrintFormat for table output
 */
func listAllSessions(sessions []models.Session) error {
	// Format output session list
	var dataList []*orderedmap.OrderedMap
	for _, sess := range sessions {
		row := Session_Columns{}
		row.SessionID = sess.SessionID
		row.InstanceID = sess.InstanceID
		row.LocalPort = sess.LocalPort
		row.RemotePort = sess.RemotePort
		row.Status = string(sess.Status)
		row.Pid = sess.Pid
		row.StartTime = sess.StartTime.Format(time.RFC3339)

		if running, err := utils.IsProcessRunning(row.Pid); err == nil && running {
			row.Healthy = "Y"
		} else {
			row.Healthy = "N"
		}

		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}

	utils.PrintFormat(dataList)
	return nil
}

func init() {
	listCmd.Flags().SortFlags = false
	listCmd.Flags().StringVarP(&listInstance, "instance", "i", "", "EC2 instance id")
	listCmd.Flags().IntVarP(&listPort, "port", "p", 0, "Local port")
	sessionCmd.AddCommand(listCmd)
}
