package upgrade

import (
	"context"
	"fmt"
	"os"

	"ssm-keeper/cmd/root"
	"ssm-keeper/internal/config"
	"ssm-keeper/internal/env"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "升级ssm-keeper到最新发布版本",
	Long:  `Checks for the latest release on GitHub and replaces the current binary when a newer version exists`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpgrade(context.Background())
	},
}

/**
 * Upgrade the running binary to the latest GitHub release
 * @param {context.Context} ctx - Context for release detection and download
 * @returns {error} Returns error if detection or replacement fails
 * @description
 * - Refuses to upgrade development builds, they carry no comparable version
 * - Detects the latest release of the configured repository
 * - Skips the download when the current version is already the newest
 * - Replaces the executable in place on success
 */
func runUpgrade(ctx context.Context) error {
	version := env.Version
	if version == "" || version == "dev" {
		return fmt.Errorf("cannot self-update a development version, install a release build first")
	}

	repo := config.Config.Upgrade.Repository
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repo))
	if err != nil {
		return fmt.Errorf("查询最新版本失败: %w", err)
	}
	if !found {
		return fmt.Errorf("仓库%s没有适用于当前平台的发布包", repo)
	}

	if latest.LessOrEqual(version) {
		fmt.Printf("当前版本 %s 已是最新\n", version)
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("定位当前可执行文件失败: %w", err)
	}

	fmt.Printf("正在从 %s 升级到 %s ...\n", version, latest.Version())
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("升级到%s失败: %w", latest.Version(), err)
	}

	fmt.Printf("升级成功，当前版本 %s\n", latest.Version())
	return nil
}

func init() {
	root.RootCmd.AddCommand(upgradeCmd)
}
