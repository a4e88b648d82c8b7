package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	"github.com/weisyn/confstake/pkg/interfaces/settlement"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
	"github.com/weisyn/confstake/pkg/types"
	"github.com/weisyn/confstake/pkg/utils"
)

// QueryHandler 只读查询
type QueryHandler struct {
	query    stake.Query
	balances settlement.Settlement
}

// NewQueryHandler 创建查询处理器；balances 为空时不注册账户余额路由
func NewQueryHandler(query stake.Query, balances settlement.Settlement) *QueryHandler {
	return &QueryHandler{query: query, balances: balances}
}

// RegisterRoutes 注册路由
//
// - GET /certificates/:id/balance
// - GET /certificates/:id/owner
// - GET /certificates/:id/pending
// - GET /accounts/:address/certificates
// - GET /accounts/:address/balance
// - GET /withdrawals/:request_id
// - GET /stranded
func (h *QueryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/certificates/:id/balance", h.GetEncryptedBalance)
	r.GET("/certificates/:id/owner", h.OwnerOf)
	r.GET("/certificates/:id/pending", h.PendingStatus)
	r.GET("/accounts/:address/certificates", h.TokensOf)
	if h.balances != nil {
		r.GET("/accounts/:address/balance", h.AccountBalance)
	}
	r.GET("/withdrawals/:request_id", h.PendingRecord)
	r.GET("/stranded", h.StrandedWithdrawals)
}

// GetEncryptedBalance 凭证的密文句柄与可查看方
func (h *QueryHandler) GetEncryptedBalance(c *gin.Context) {
	id, ok := certificateParam(c)
	if !ok {
		return
	}
	balance, err := h.query.GetEncryptedBalance(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, balance)
}

// OwnerOf 凭证持有人
func (h *QueryHandler) OwnerOf(c *gin.Context) {
	id, ok := certificateParam(c)
	if !ok {
		return
	}
	owner, err := h.query.OwnerOf(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, apitypes.OwnerResponse{CertificateID: id, Owner: owner})
}

// PendingStatus 凭证是否有在途赎回
func (h *QueryHandler) PendingStatus(c *gin.Context) {
	id, ok := certificateParam(c)
	if !ok {
		return
	}
	requestID, err := h.query.PendingRequestFor(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, apitypes.PendingStatusResponse{
		CertificateID: id,
		Pending:       requestID != 0,
		RequestID:     requestID,
	})
}

// TokensOf 持有人的凭证列表
func (h *QueryHandler) TokensOf(c *gin.Context) {
	owner, ok := addressParam(c)
	if !ok {
		return
	}
	ids, err := h.query.TokensOf(c.Request.Context(), owner)
	if err != nil {
		fail(c, err)
		return
	}
	if ids == nil {
		ids = []types.CertificateID{}
	}
	respond(c, http.StatusOK, ids)
}

// AccountBalance 结算账户的明文余额
func (h *QueryHandler) AccountBalance(c *gin.Context) {
	account, ok := addressParam(c)
	if !ok {
		return
	}
	balance, err := h.balances.BalanceOf(c.Request.Context(), account)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, apitypes.AccountBalanceResponse{
		Account:   account,
		Balance:   balance.Dec(),
		Formatted: utils.FormatUnits(balance),
	})
}

// PendingRecord 待提取记录
func (h *QueryHandler) PendingRecord(c *gin.Context) {
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	record, err := h.query.PendingRecord(c.Request.Context(), requestID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, record)
}

// StrandedWithdrawals 全部滞留提取
func (h *QueryHandler) StrandedWithdrawals(c *gin.Context) {
	records, err := h.query.StrandedWithdrawals(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []*types.StrandedWithdrawal{}
	}
	respond(c, http.StatusOK, records)
}
