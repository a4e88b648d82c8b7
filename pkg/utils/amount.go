package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// UnitDecimals 1 个单位 = 10^18 个最小单位
const UnitDecimals = 18

var unitMultiplier = new(big.Int).Exp(big.NewInt(10), big.NewInt(UnitDecimals), nil)

// ParseUnits 将十进制单位金额（如 "1.5"）解析为最小单位的 uint256
//
// 使用 big.Rat 无损解析；小数位超过 18 位、负数或超出 256 位时返回错误
func ParseUnits(amountStr string) (*uint256.Int, error) {
	if amountStr = strings.TrimSpace(amountStr); amountStr == "" {
		return nil, fmt.Errorf("金额为空")
	}

	rat, ok := new(big.Rat).SetString(amountStr)
	if !ok {
		return nil, fmt.Errorf("金额格式无效: %s", amountStr)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("金额不能为负数: %s", amountStr)
	}

	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(unitMultiplier))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("小数精度超出限制（最多%d位）: %s", UnitDecimals, amountStr)
	}

	amount, overflow := uint256.FromBig(scaled.Num())
	if overflow {
		return nil, fmt.Errorf("金额超出支持范围: %s", amountStr)
	}
	return amount, nil
}

// ParseBaseUnits 解析最小单位的十进制或0x十六进制整数
func ParseBaseUnits(amountStr string) (*uint256.Int, error) {
	amountStr = strings.TrimSpace(amountStr)
	if strings.HasPrefix(amountStr, "0x") || strings.HasPrefix(amountStr, "0X") {
		amount, err := uint256.FromHex(amountStr)
		if err != nil {
			return nil, fmt.Errorf("金额格式无效: %s: %w", amountStr, err)
		}
		return amount, nil
	}
	amount, err := uint256.FromDecimal(amountStr)
	if err != nil {
		return nil, fmt.Errorf("金额格式无效: %s: %w", amountStr, err)
	}
	return amount, nil
}

// FormatUnits 将最小单位金额格式化为十进制单位字符串
//
// 例如：1500000000000000000 → "1.5"，10^18 → "1.0"
func FormatUnits(amount *uint256.Int) string {
	if amount == nil {
		return "0.0"
	}
	integerPart, fractionalPart := new(big.Int).QuoRem(amount.ToBig(), unitMultiplier, new(big.Int))
	if fractionalPart.Sign() == 0 {
		return integerPart.String() + ".0"
	}
	fractionalStr := fractionalPart.String()
	fractionalStr = strings.Repeat("0", UnitDecimals-len(fractionalStr)) + fractionalStr
	fractionalStr = strings.TrimRight(fractionalStr, "0")
	return integerPart.String() + "." + fractionalStr
}
