package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/encryption"
	"github.com/weisyn/confstake/internal/core/oracle"
)

var keygenFlags struct {
	keystorePath string
	passwordEnv  string
	signers      int
	threshold    int
	force        bool
	show         bool
}

// keygenCmd 生成预言机密钥库
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "生成预言机密钥库",
	Long: `生成解密预言机的密钥库：一把加密密钥和若干门限签名密钥，以口令加密保存。

输出的公开信息用于外部预言机模式下的账本配置：
  oracle.encryption_key  <- encryption_pubkey
  oracle.signers         <- signers
  oracle.threshold       <- threshold
  stake.oracle_principal <- principal

示例:
  confstake keygen --keystore data/oracle.keystore.json --signers 3 --threshold 2
  confstake keygen --keystore data/oracle.keystore.json --show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keygenFlags.show {
			return showKeystore(keygenFlags.keystorePath)
		}

		if _, err := os.Stat(keygenFlags.keystorePath); err == nil && !keygenFlags.force {
			return fmt.Errorf("密钥库 %s 已存在，使用 --force 覆盖", keygenFlags.keystorePath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("检查密钥库失败: %w", err)
		}

		password, err := keystorePassword(keygenFlags.passwordEnv)
		if err != nil {
			return err
		}

		keys, err := oracle.GenerateKeyMaterial(keygenFlags.signers, keygenFlags.threshold)
		if err != nil {
			return err
		}
		if err := oracle.SaveKeystore(keygenFlags.keystorePath, password, keys, encryption.NewEncryptionService()); err != nil {
			return fmt.Errorf("保存密钥库失败: %w", err)
		}

		pterm.Success.Printfln("密钥库已写入 %s", keygenFlags.keystorePath)
		return showKeystore(keygenFlags.keystorePath)
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenFlags.keystorePath, "keystore", "oracle.keystore.json", "密钥库文件路径")
	keygenCmd.Flags().StringVar(&keygenFlags.passwordEnv, "password-env", "CONFSTAKE_ORACLE_PASSWORD", "存放口令的环境变量，未设置时交互输入")
	keygenCmd.Flags().IntVar(&keygenFlags.signers, "signers", 3, "签名者数量")
	keygenCmd.Flags().IntVar(&keygenFlags.threshold, "threshold", 2, "证明所需签名数量")
	keygenCmd.Flags().BoolVar(&keygenFlags.force, "force", false, "覆盖已存在的密钥库")
	keygenCmd.Flags().BoolVar(&keygenFlags.show, "show", false, "只显示已有密钥库的公开信息")
}

// keystorePassword 优先读取环境变量，否则在终端中输入两次
func keystorePassword(env string) (string, error) {
	if password := os.Getenv(env); password != "" {
		return password, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("未设置环境变量 %s，且标准输入不是终端", env)
	}

	password, err := promptPassword("密钥库口令")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("密钥库口令不能为空")
	}
	confirm, err := promptPassword("再次输入口令")
	if err != nil {
		return "", err
	}
	if confirm != password {
		return "", fmt.Errorf("两次输入的口令不一致")
	}
	return password, nil
}

// promptPassword 提示输入密码（不回显）
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt + ": ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	fmt.Println()
	return string(bytePassword), nil
}

func showKeystore(path string) error {
	info, err := oracle.ReadPublicInfo(path)
	if err != nil {
		return err
	}

	data := pterm.TableData{
		{"principal", info.Principal.Hex()},
		{"encryption_pubkey", info.EncryptionPubkey},
		{"threshold", strconv.Itoa(info.Threshold)},
	}
	for i, signer := range info.Signers {
		data = append(data, []string{fmt.Sprintf("signer[%d]", i), signer.Hex()})
	}
	return pterm.DefaultTable.WithHasHeader(false).WithData(data).Render()
}

