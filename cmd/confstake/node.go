package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/confstake/configs"
	"github.com/weisyn/confstake/internal/app"
)

var nodeFlags struct {
	configPath string
	env        string
	noAPI      bool
}

// nodeCmd 启动节点
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "启动质押账本节点",
	Long: `启动质押账本节点，阻塞直到收到 SIGINT 或 SIGTERM。

配置查找顺序：--env 内置配置，环境变量 ` + app.ConfigPathEnv + `，--config 参数，configs/confstake.json。
本地预言机模式下需要通过环境变量提供密钥库口令（默认 CONFSTAKE_ORACLE_PASSWORD）。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []app.Option{app.WithConfigFile(nodeFlags.configPath)}
		if nodeFlags.env != "" {
			embedded := configs.Get(nodeFlags.env)
			if embedded == nil {
				return fmt.Errorf("未知环境 %q，可选: dev | prod", nodeFlags.env)
			}
			opts = append(opts, app.WithEmbeddedConfig(embedded))
		}
		if nodeFlags.noAPI {
			opts = append(opts, app.WithoutAPI())
		}

		spinner, _ := pterm.DefaultSpinner.Start("节点启动中...")
		node, err := app.Start(opts...)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success("节点已启动，按 Ctrl+C 退出")

		if err := node.Wait(); err != nil {
			return err
		}
		pterm.Info.Println("节点已停止")
		return nil
	},
}

func init() {
	nodeCmd.Flags().StringVarP(&nodeFlags.configPath, "config", "c", "", "配置文件路径")
	nodeCmd.Flags().StringVar(&nodeFlags.env, "env", "", "使用内置环境配置: dev | prod")
	nodeCmd.Flags().BoolVar(&nodeFlags.noAPI, "no-api", false, "不启动HTTP API")
}
