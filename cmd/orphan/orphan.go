package orphan

import (
	"ssm-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var orphanCmd = &cobra.Command{
	Use:   "orphan",
	Short: "Orphan tunnel process operations (list, reap)",
	Long:  `Find and clean up tunnel subprocesses left behind by dead keeper instances`,
}

const orphanExample = `  # list leftover tunnel processes
  ssm-keeper orphan list`

func init() {
	root.RootCmd.AddCommand(orphanCmd)

	orphanCmd.Example = orphanExample
}
