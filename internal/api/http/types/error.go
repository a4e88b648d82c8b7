// Package types provides HTTP error type definitions.
package types

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code      string      `json:"code"`                // 错误码
	Message   string      `json:"message"`             // 错误消息
	Details   interface{} `json:"details,omitempty"`   // 详细信息
	RequestID string      `json:"requestId,omitempty"` // 请求ID
	Timestamp string      `json:"timestamp,omitempty"` // 时间戳
}

// 错误码常量
const (
	// 通用错误码
	ErrInvalidArgument   = "INVALID_ARGUMENT"
	ErrUnauthenticated   = "UNAUTHENTICATED"
	ErrPermissionDenied  = "PERMISSION_DENIED"
	ErrNotFound          = "NOT_FOUND"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrRequestTooLarge   = "REQUEST_TOO_LARGE"

	// 质押协议错误码
	ErrZeroAmount       = "ZERO_AMOUNT"
	ErrStakeNotFound    = "STAKE_NOT_FOUND"
	ErrInvalidCert      = "INVALID_CERTIFICATE"
	ErrAlreadyPending   = "REDEMPTION_ALREADY_PENDING"
	ErrUnknownRequest   = "UNKNOWN_REQUEST"
	ErrInvalidProof     = "INVALID_PROOF"
	ErrInvalidCleartext = "INVALID_CLEARTEXT"
	ErrTransferFailed   = "TRANSFER_FAILED"
	ErrReentrantCall    = "REENTRANT_CALL"
	ErrStrandedNotFound = "STRANDED_NOT_FOUND"

	// 服务器错误码
	ErrInternal           = "INTERNAL"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrTimeout            = "TIMEOUT"
)

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message string, details interface{}) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithRequestID 添加请求ID
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.Error.RequestID = requestID
	return e
}

// WithTimestamp 添加时间戳
func (e *ErrorResponse) WithTimestamp(timestamp string) *ErrorResponse {
	e.Error.Timestamp = timestamp
	return e
}

// ErrInvalidArgumentResponse 参数错误
func ErrInvalidArgumentResponse(field, reason string) *ErrorResponse {
	return NewErrorResponse(
		ErrInvalidArgument,
		"Invalid argument",
		map[string]interface{}{
			"field":  field,
			"reason": reason,
		},
	)
}

// ErrUnauthenticatedResponse 缺少调用方身份
func ErrUnauthenticatedResponse(header string) *ErrorResponse {
	return NewErrorResponse(
		ErrUnauthenticated,
		"Caller address required",
		map[string]interface{}{
			"header": header,
		},
	)
}
