package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/confstake/internal/app/version"
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "confstake",
	Short: "机密质押账本",
	Long: `confstake - 以加密金额记账的质押账本节点

质押金额以预言机公钥加密保存，赎回时由解密预言机异步返回明文与门限签名证明，
账本验证证明后向受益人转出资金并销毁质押凭证。

常用命令:
  confstake node --config configs/confstake.json   # 启动节点
  confstake keygen --keystore oracle.json          # 生成预言机密钥库`,
	Version:      version.Version,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
	},
}
