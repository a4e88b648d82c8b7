// Package types provides HTTP response type definitions.
package types

import (
	"github.com/weisyn/confstake/pkg/types"
)

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data: data,
	}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// WithTimestamp 添加时间戳
func (r *SuccessResponse) WithTimestamp(timestamp string) *SuccessResponse {
	r.Timestamp = timestamp
	return r
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string            `json:"status"` // ok, degraded, unavailable
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components,omitempty"`
}

// ========== 请求体 ==========

// StakeRequest 质押请求
//
// Amount 为单位金额（如 "1.5"）；BaseUnits 为 true 时按最小单位解析
type StakeRequest struct {
	Amount    string `json:"amount" binding:"required"`
	BaseUnits bool   `json:"base_units"`
}

// ApproveRequest 批准凭证操作人
type ApproveRequest struct {
	To string `json:"to" binding:"required"`
}

// ApprovalForAllRequest 设置批准操作员
type ApprovalForAllRequest struct {
	Operator string `json:"operator" binding:"required"`
	Approved bool   `json:"approved"`
}

// TransferRequest 转让凭证
type TransferRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// FulfillRequest 预言机履约回调
//
// Cleartext 与 Proof 为十六进制（可带0x前缀）
type FulfillRequest struct {
	RequestID types.RequestID `json:"request_id" binding:"required"`
	Cleartext string          `json:"cleartext" binding:"required"`
	Proof     string          `json:"proof" binding:"required"`
}

// ========== 响应体 ==========

// StakeResponse 质押结果
type StakeResponse struct {
	CertificateID types.CertificateID `json:"certificate_id"`
}

// RedeemResponse 赎回结果
type RedeemResponse struct {
	CertificateID types.CertificateID `json:"certificate_id"`
	RequestID     types.RequestID     `json:"request_id"`
}

// FulfillResponse 履约结果
type FulfillResponse struct {
	RequestID types.RequestID `json:"request_id"`
	Status    string          `json:"status"` // completed, stranded
}

// OwnerResponse 凭证持有人
type OwnerResponse struct {
	CertificateID types.CertificateID `json:"certificate_id"`
	Owner         types.Address       `json:"owner"`
}

// PendingStatusResponse 凭证的赎回状态
type PendingStatusResponse struct {
	CertificateID types.CertificateID `json:"certificate_id"`
	Pending       bool                `json:"pending"`
	RequestID     types.RequestID     `json:"request_id,omitempty"`
}

// AccountBalanceResponse 结算账户余额
type AccountBalanceResponse struct {
	Account   types.Address `json:"account"`
	Balance   string        `json:"balance"`   // 最小单位十进制
	Formatted string        `json:"formatted"` // 单位金额
}
