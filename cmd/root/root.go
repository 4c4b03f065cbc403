package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "ssm-keeper",
	Short: "SSM端口转发会话管理器",
	Long:  `ssm-keeper管理AWS SSM端口转发会话的启动、停止、巡检和孤儿进程清理`,
}
