package metrics

import (
	"fmt"
	"time"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/config"
	"ssm-keeper/services"

	"github.com/spf13/cobra"
)

var (
	pushGatewayAddr string
)

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().StringVarP(&pushGatewayAddr, "addr", "a", "", "Pushgateway地址")
	Cmd.Flags().DurationP("timeout", "t", 30*time.Second, "Pushgateway推送超时时间")
}

var Cmd = &cobra.Command{
	Use:   "metrics",
	Short: "上报Prometheus指标",
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if pushGatewayAddr == "" {
			pushGatewayAddr = config.Config.Metrics.Pushgateway
		}

		if err := services.CollectAndPushMetrics(pushGatewayAddr, timeout); err != nil {
			fmt.Printf("指标上报失败: %v\n请检查Pushgateway地址是否正确且可访问", err)
		}
	},
}
