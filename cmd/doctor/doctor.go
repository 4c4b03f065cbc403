package doctor

import (
	"fmt"
	"os"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/config"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the local environment",
	Long:  `Verify that the aws CLI, the session-manager-plugin and the keeper directory are usable on this machine, and report whether the keeper server is running`,
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

const doctorExample = `  # Diagnose the local environment
  ssm-keeper doctor`

/**
 * Run local environment diagnostics and display the results
 * @description
 * - Runs all environment checks without touching the server
 * - Prints one line per check with a pass/fail icon
 * - Exits with a non-zero code when any check fails
 */
func runDoctor() {
	checks := services.RunDoctor(&config.Config)

	failed := 0
	fmt.Println("=== SSM Keeper Environment Diagnostics ===")
	fmt.Println()
	for _, check := range checks {
		statusIcon := "✅"
		if !check.Passed {
			statusIcon = "❌"
			failed++
		}
		fmt.Printf("%s %s", statusIcon, check.Name)
		if check.Detail != "" {
			fmt.Printf(": %s", check.Detail)
		}
		fmt.Println()
	}
	fmt.Println()

	if failed > 0 {
		fmt.Printf("%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("All checks passed")
}

func init() {
	doctorCmd.Flags().SortFlags = false
	doctorCmd.Example = doctorExample
	root.RootCmd.AddCommand(doctorCmd)
}
