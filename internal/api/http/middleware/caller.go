package middleware

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	"github.com/weisyn/confstake/pkg/types"
)

// HeaderCaller 调用方地址头
//
// 节点不做身份认证，调用方地址由前置网关在认证后写入
const HeaderCaller = "X-Caller-Address"

const callerKey = "caller_address"

// RequireCaller 要求请求携带合法的非零调用方地址
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderCaller)
		if !common.IsHexAddress(raw) {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apitypes.ErrUnauthenticatedResponse(HeaderCaller).WithRequestID(GetRequestID(c)))
			return
		}
		caller := common.HexToAddress(raw)
		if caller == types.ZeroAddress {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apitypes.ErrUnauthenticatedResponse(HeaderCaller).WithRequestID(GetRequestID(c)))
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// GetCaller 获取已校验的调用方地址
func GetCaller(c *gin.Context) types.Address {
	if v, ok := c.Get(callerKey); ok {
		if addr, ok2 := v.(types.Address); ok2 {
			return addr
		}
	}
	return types.ZeroAddress
}
