package logs

import (
	"fmt"
	"os"
	"strings"

	"ssm-keeper/cmd/root"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var (
	logInstance  string
	logLocalPort int
	stderrOnly   bool
	tailLines    int
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().StringVarP(&logInstance, "instance", "i", "", "EC2 instance id")
	Cmd.Flags().IntVarP(&logLocalPort, "local-port", "l", 0, "Local port")
	Cmd.Flags().BoolVarP(&stderrOnly, "stderr", "e", false, "Show only the stderr capture")
	Cmd.Flags().IntVarP(&tailLines, "tail", "n", 0, "Show only the last N lines")
}

var Cmd = &cobra.Command{
	Use:   "logs",
	Short: "Show captured session subprocess output",
	Long:  `Show the stdout and stderr a tunnel subprocess wrote, captured per session under the logs directory`,
	Run: func(cmd *cobra.Command, args []string) {
		if logInstance == "" || logLocalPort <= 0 {
			fmt.Println("Please use -i and -l to specify the instance id and local port of the session")
			return
		}

		if !stderrOnly {
			printCapture("stdout", services.SessionOutputPath(logInstance, logLocalPort, ".out"))
		}
		printCapture("stderr", services.SessionOutputPath(logInstance, logLocalPort, ".err"))
	},
}

/**
 * Print one captured output file
 * @param {string} label - Stream label shown in the section header
 * @param {string} path - Capture file path
 * @description
 * - Prints nothing but a notice when the capture file does not exist
 * - Honors the --tail flag by printing only the trailing lines
 */
func printCapture(label, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("=== %s ===\n(no capture at %s)\n", label, path)
			return
		}
		fmt.Printf("Failed to read %s capture: %v\n", label, err)
		return
	}

	text := strings.TrimRight(string(data), "\n")
	if tailLines > 0 {
		lines := strings.Split(text, "\n")
		if len(lines) > tailLines {
			lines = lines[len(lines)-tailLines:]
		}
		text = strings.Join(lines, "\n")
	}

	fmt.Printf("=== %s (%s) ===\n", label, path)
	if text != "" {
		fmt.Println(text)
	}
}
