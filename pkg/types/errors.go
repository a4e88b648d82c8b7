package types

import "errors"

// 质押账本错误定义
//
// 所有错误在检测到的调用处同步返回，核心不做自动重试。
// 调用方使用 errors.Is 匹配。
var (
	ErrZeroAmount               = errors.New("质押金额必须大于0")
	ErrStakeNotFound            = errors.New("凭证没有有效的加密余额")
	ErrInvalidCertificate       = errors.New("凭证不存在或已销毁")
	ErrCertificateNotFound      = errors.New("凭证未找到")
	ErrUnauthorized             = errors.New("调用方无权操作")
	ErrRedemptionAlreadyPending = errors.New("凭证已有待完成的赎回请求")
	ErrUnknownRequest           = errors.New("未知的解密请求")
	ErrInvalidProof             = errors.New("解密证明无效")
	ErrInvalidCleartext         = errors.New("解密明文格式无效")
	ErrTransferFailed           = errors.New("资金转账失败")
	ErrReentrantCall            = errors.New("临界区内禁止重入调用")
	ErrStrandedNotFound         = errors.New("未找到滞留的提取记录")
	ErrInvalidAddress           = errors.New("地址无效")
)
