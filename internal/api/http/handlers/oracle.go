package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/weisyn/confstake/internal/api/http/middleware"
	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
)

// RequestLister 在途解密请求来源
type RequestLister interface {
	List(ctx context.Context) ([]*oracle.DecryptionRequest, error)
}

// requestView 解密请求的对外表示，密文以十六进制输出
type requestView struct {
	RequestID   types.RequestID          `json:"request_id"`
	Handles     []types.CiphertextHandle `json:"handles"`
	Ciphertexts []hexutil.Bytes          `json:"ciphertexts"`
}

// OracleHandler 预言机拉取请求、回调履约与滞留重试
type OracleHandler struct {
	protocol stake.RedemptionProtocol
	requests RequestLister
}

// NewOracleHandler 创建预言机处理器
func NewOracleHandler(protocol stake.RedemptionProtocol, requests RequestLister) *OracleHandler {
	return &OracleHandler{protocol: protocol, requests: requests}
}

// RegisterRoutes 注册路由
//
// - GET  /oracle/requests
// - POST /oracle/fulfill
// - POST /stranded/:request_id/retry
func (h *OracleHandler) RegisterRoutes(r *gin.RouterGroup) {
	if h.requests != nil {
		r.GET("/oracle/requests", h.ListRequests)
	}
	g := r.Group("", middleware.RequireCaller())
	g.POST("/oracle/fulfill", h.Fulfill)
	g.POST("/stranded/:request_id/retry", h.RetryStranded)
}

// ListRequests 列出等待预言机处理的请求
func (h *OracleHandler) ListRequests(c *gin.Context) {
	requests, err := h.requests.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	views := make([]requestView, 0, len(requests))
	for _, req := range requests {
		view := requestView{
			RequestID:   req.RequestID,
			Handles:     req.Handles,
			Ciphertexts: make([]hexutil.Bytes, len(req.Ciphertexts)),
		}
		for i, ct := range req.Ciphertexts {
			view.Ciphertexts[i] = ct
		}
		views = append(views, view)
	}
	respond(c, http.StatusOK, views)
}

// Fulfill 预言机交付明文与证明
//
// 转账失败时履约仍然生效，响应 200 且 status 为 stranded
func (h *OracleHandler) Fulfill(c *gin.Context) {
	var req apitypes.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	cleartext, err := decodeHex(req.Cleartext)
	if err != nil {
		badRequest(c, "cleartext", err.Error())
		return
	}
	proof, err := decodeHex(req.Proof)
	if err != nil {
		badRequest(c, "proof", err.Error())
		return
	}

	err = h.protocol.Fulfill(c.Request.Context(), middleware.GetCaller(c), req.RequestID, cleartext, proof)
	switch {
	case err == nil:
		respond(c, http.StatusOK, apitypes.FulfillResponse{RequestID: req.RequestID, Status: "completed"})
	case errors.Is(err, types.ErrTransferFailed):
		_ = c.Error(err)
		respond(c, http.StatusOK, apitypes.FulfillResponse{RequestID: req.RequestID, Status: "stranded"})
	default:
		fail(c, err)
	}
}

// RetryStranded 重试滞留提取的转账
func (h *OracleHandler) RetryStranded(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	if err := h.protocol.RetryStranded(c.Request.Context(), middleware.GetCaller(c), requestID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
