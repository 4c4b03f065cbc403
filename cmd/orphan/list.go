package orphan

import (
	"encoding/json"
	"fmt"
	"log"

	"ssm-keeper/internal/config"
	"ssm-keeper/internal/models"
	"ssm-keeper/internal/rpc"
	"ssm-keeper/internal/utils"
	"ssm-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tunnel processes found in the process table",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listOrphans(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * List tunnel processes matching the configured signatures
 * @returns {error} Returns error if process enumeration fails
 * @description
 * - Asks the running server first so registry ownership is marked
 * - Falls back to a local process table scan when the server is down,
 *   in that case every match shows as untracked
 * - Uses utils.PrintFormat for formatted output
 */
func listOrphans() error {
	orphans, ok := tryListOrphansViaRPC(rpc.NewHTTPClient(nil))
	if !ok {
		manager := services.NewSessionManager(&config.Config)
		manager.LoadCache()
		var err error
		orphans, err = manager.FindOrphanedSessions()
		if err != nil {
			return fmt.Errorf("failed to scan processes: %w", err)
		}
	}

	if len(orphans) == 0 {
		fmt.Println("No tunnel processes found")
		return nil
	}

	return listAllOrphans(orphans)
}

/**
 * Try to fetch the orphan list from the running ssm-keeper server
 * @param {rpc.HTTPClient} rpcClient - RPC client instance
 * @returns {[]models.OrphanProcess} Matching processes reported by the server
 * @returns {bool} True if the server answered, false when unreachable
 */
func tryListOrphansViaRPC(rpcClient rpc.HTTPClient) ([]models.OrphanProcess, bool) {
	response, err := rpcClient.Get("/ssm-keeper/api/v1/orphans", nil)
	if err != nil {
		log.Printf("Failed to call ssm-keeper API: %v", err)
		return nil, false
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		log.Printf("ssm-keeper API returned error: %s", response.Error)
		return nil, false
	}
	var orphans []models.OrphanProcess
	if err := json.Unmarshal(response.Body, &orphans); err != nil {
		log.Printf("Failed to parse orphan list: %v", err)
		return nil, false
	}
	return orphans, true
}

/**
 *	Fields displayed in list format
 */
type Orphan_Columns struct {
	Pid        int    `json:"pid"`
	Executable string `json:"executable"`
	Tracked    string `json:"tracked"`
	Command    string `json:"command"`
}

func listAllOrphans(orphans []models.OrphanProcess) error {
	var dataList []*orderedmap.OrderedMap
	for _, orphan := range orphans {
		row := Orphan_Columns{}
		row.Pid = orphan.Pid
		row.Executable = orphan.Executable
		row.Command = orphan.Command
		if orphan.Tracked {
			row.Tracked = "Y"
		} else {
			row.Tracked = "N"
		}

		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}

	utils.PrintFormat(dataList)
	return nil
}

func init() {
	orphanCmd.AddCommand(listCmd)
}
