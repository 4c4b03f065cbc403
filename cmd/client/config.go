package client

import (
	"fmt"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/config"
	"ssm-keeper/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective ssm-keeper configuration",
	Long:  `Show the effective configuration after file values and built-in defaults are merged`,
	Run: func(cmd *cobra.Command, args []string) {
		showConfigs()
	},
}

const configExample = `  # Show effective configuration
  ssm-keeper config`

func showConfigs() {
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("Config file: %s\n", used)
	} else {
		fmt.Println("Config file: (built-in defaults)")
	}
	utils.PrintJson(&config.Config)
}

func init() {
	configCmd.Flags().SortFlags = false
	root.RootCmd.AddCommand(configCmd)
	configCmd.Example = configExample
}
