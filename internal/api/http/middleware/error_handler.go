package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	infralog "github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/types"
)

// errorMapping 领域错误到HTTP状态与错误码
type errorMapping struct {
	target error
	status int
	code   string
}

// 按顺序匹配，第一个命中的生效
var errorMappings = []errorMapping{
	{types.ErrZeroAmount, http.StatusBadRequest, apitypes.ErrZeroAmount},
	{types.ErrInvalidAddress, http.StatusBadRequest, apitypes.ErrInvalidArgument},
	{types.ErrInvalidCleartext, http.StatusBadRequest, apitypes.ErrInvalidCleartext},
	{types.ErrInvalidProof, http.StatusBadRequest, apitypes.ErrInvalidProof},
	{types.ErrUnauthorized, http.StatusForbidden, apitypes.ErrPermissionDenied},
	{types.ErrInvalidCertificate, http.StatusNotFound, apitypes.ErrInvalidCert},
	{types.ErrCertificateNotFound, http.StatusNotFound, apitypes.ErrNotFound},
	{types.ErrStakeNotFound, http.StatusNotFound, apitypes.ErrStakeNotFound},
	{types.ErrUnknownRequest, http.StatusNotFound, apitypes.ErrUnknownRequest},
	{types.ErrStrandedNotFound, http.StatusNotFound, apitypes.ErrStrandedNotFound},
	{types.ErrRedemptionAlreadyPending, http.StatusConflict, apitypes.ErrAlreadyPending},
	{types.ErrReentrantCall, http.StatusConflict, apitypes.ErrReentrantCall},
	{types.ErrTransferFailed, http.StatusUnprocessableEntity, apitypes.ErrTransferFailed},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, apitypes.ErrTimeout},
	{context.Canceled, http.StatusServiceUnavailable, apitypes.ErrServiceUnavailable},
}

// StatusFromError 返回错误对应的HTTP状态码与错误码
func StatusFromError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, apitypes.ErrInternal
}

// ErrorHandler 错误处理中间件
//
// 处理器通过 c.Error 登记错误后直接返回，由这里统一写出错误响应
func ErrorHandler(logger infralog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, code := StatusFromError(err)

		message := err.Error()
		if status >= http.StatusInternalServerError && code == apitypes.ErrInternal {
			// 内部错误不向调用方暴露细节
			message = "Internal server error"
		}
		if logger != nil && status >= http.StatusInternalServerError {
			if zl := logger.GetZapLogger(); zl != nil {
				zl.Error("HTTP error",
					zap.String("code", code),
					zap.String("request_id", GetRequestID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
			}
		}

		c.JSON(status, apitypes.NewErrorResponse(code, message, nil).
			WithRequestID(GetRequestID(c)).
			WithTimestamp(time.Now().UTC().Format(time.RFC3339)))
	}
}

// BodyLimit 限制请求体大小，超出时返回 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, apitypes.NewErrorResponse(
				apitypes.ErrRequestTooLarge,
				"Request body too large",
				map[string]interface{}{"limit": maxBytes},
			).WithRequestID(GetRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
