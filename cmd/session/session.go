package session

import (
	"ssm-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Session operations (list, start/stop etc.)",
	Long:  `Port forwarding session operations (list, start/stop etc.)`,
}

const sessionExample = `  # start port forwarding session
  ssm-keeper session start -i i-0abc123def456 -l 5432 -r 5432`

func init() {
	root.RootCmd.AddCommand(sessionCmd)

	sessionCmd.Example = sessionExample
}
