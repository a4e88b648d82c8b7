// Package handlers 提供质押账本的HTTP处理器
//
// 处理器只做参数解析与响应封装；错误通过 c.Error 登记，
// 由 ErrorHandler 中间件统一映射为HTTP状态与错误码。
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/confstake/internal/api/http/middleware"
	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	"github.com/weisyn/confstake/pkg/types"
)

// respond 写出成功响应
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, apitypes.NewSuccessResponse(data).
		WithRequestID(middleware.GetRequestID(c)).
		WithTimestamp(time.Now().UTC().Format(time.RFC3339)))
}

// badRequest 写出参数错误
func badRequest(c *gin.Context, field, reason string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		apitypes.ErrInvalidArgumentResponse(field, reason).WithRequestID(middleware.GetRequestID(c)))
}

// fail 登记领域错误
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func certificateParam(c *gin.Context) (types.CertificateID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "id", "凭证ID必须是正整数")
		return 0, false
	}
	return types.CertificateID(id), true
}

func requestIDParam(c *gin.Context) (types.RequestID, bool) {
	raw := c.Param("request_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "request_id", "请求ID必须是正整数")
		return 0, false
	}
	return types.RequestID(id), true
}

// parseAddress 解析非零十六进制地址
func parseAddress(raw string) (types.Address, bool) {
	if !common.IsHexAddress(raw) {
		return types.ZeroAddress, false
	}
	addr := common.HexToAddress(raw)
	return addr, addr != types.ZeroAddress
}

func addressParam(c *gin.Context) (types.Address, bool) {
	addr, ok := parseAddress(c.Param("address"))
	if !ok {
		badRequest(c, "address", "地址必须是非零的十六进制地址")
	}
	return addr, ok
}

// decodeHex 解码十六进制字段，允许省略0x前缀
func decodeHex(raw string) ([]byte, error) {
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	return hexutil.Decode(raw)
}
