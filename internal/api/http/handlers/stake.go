package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/internal/api/http/middleware"
	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/utils"
)

// StakeHandler 质押、赎回与凭证操作
//
// 所有路由都要求 X-Caller-Address，调用方即操作发起人
type StakeHandler struct {
	protocol stake.RedemptionProtocol
}

// NewStakeHandler 创建质押处理器
func NewStakeHandler(protocol stake.RedemptionProtocol) *StakeHandler {
	return &StakeHandler{protocol: protocol}
}

// RegisterRoutes 注册路由
//
// - POST /stakes
// - POST /certificates/:id/redeem
// - POST /certificates/:id/approve
// - POST /certificates/:id/transfer
// - PUT  /operators
func (h *StakeHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("", middleware.RequireCaller())
	g.POST("/stakes", h.Stake)
	g.POST("/certificates/:id/redeem", h.Redeem)
	g.POST("/certificates/:id/approve", h.Approve)
	g.POST("/certificates/:id/transfer", h.Transfer)
	g.PUT("/operators", h.SetApprovalForAll)
}

// Stake 托管金额并铸造凭证
func (h *StakeHandler) Stake(c *gin.Context) {
	var req apitypes.StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "amount", err.Error())
		return
	}

	var (
		amount *uint256.Int
		err    error
	)
	if req.BaseUnits {
		amount, err = utils.ParseBaseUnits(req.Amount)
	} else {
		amount, err = utils.ParseUnits(req.Amount)
	}
	if err != nil {
		badRequest(c, "amount", err.Error())
		return
	}

	id, err := h.protocol.Stake(c.Request.Context(), middleware.GetCaller(c), amount)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, apitypes.StakeResponse{CertificateID: id})
}

// Redeem 销毁凭证并提交解密请求
func (h *StakeHandler) Redeem(c *gin.Context) {
	id, ok := certificateParam(c)
	if !ok {
		return
	}
	requestID, err := h.protocol.Redeem(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusAccepted, apitypes.RedeemResponse{CertificateID: id, RequestID: requestID})
}

// Approve 批准单个凭证的操作人；to 为零地址时清除批准
func (h *StakeHandler) Approve(c *gin.Context) {
	id, ok := certificateParam(c)
	if !ok {
		return
	}
	var req apitypes.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "to", err.Error())
		return
	}
	if !common.IsHexAddress(req.To) {
		badRequest(c, "to", "地址必须是十六进制地址")
		return
	}
	to := common.HexToAddress(req.To)
	if err := h.protocol.Approve(c.Request.Context(), middleware.GetCaller(c), to, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transfer 转让凭证
func (h *StakeHandler) Transfer(c *gin.Context) {
	id, ok := certificateParam(c)
	if !ok {
		return
	}
	var req apitypes.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}
	from, ok := parseAddress(req.From)
	if !ok {
		badRequest(c, "from", "地址必须是非零的十六进制地址")
		return
	}
	to, ok := parseAddress(req.To)
	if !ok {
		badRequest(c, "to", "地址必须是非零的十六进制地址")
		return
	}
	if err := h.protocol.TransferCertificate(c.Request.Context(), middleware.GetCaller(c), from, to, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetApprovalForAll 设置或撤销批准操作员
func (h *StakeHandler) SetApprovalForAll(c *gin.Context) {
	var req apitypes.ApprovalForAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "operator", err.Error())
		return
	}
	operator, ok := parseAddress(req.Operator)
	if !ok {
		badRequest(c, "operator", "地址必须是非零的十六进制地址")
		return
	}
	if err := h.protocol.SetApprovalForAll(c.Request.Context(), middleware.GetCaller(c), operator, req.Approved); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
