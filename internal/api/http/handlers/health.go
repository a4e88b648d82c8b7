package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/confstake/internal/api/http/types"
	"github.com/weisyn/confstake/internal/app/version"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
)

// readyProbeKey 就绪检查读取的键，不存在也视为可用
var readyProbeKey = []byte("sys/health")

// HealthHandler 健康检查端点处理器
//
// - /health: 完整健康报告
// - /health/live: 存活检查（进程是否响应）
// - /health/ready: 就绪检查（存储是否可读）
type HealthHandler struct {
	startTime  time.Time
	store      storage.BadgerStore
	oracleMode string
}

// NewHealthHandler 创建健康检查处理器
//
// oracleMode 为 local 或 external，仅用于报告
func NewHealthHandler(store storage.BadgerStore, oracleMode string) *HealthHandler {
	return &HealthHandler{
		startTime:  time.Now(),
		store:      store,
		oracleMode: oracleMode,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.GetHealth)
	r.GET("/health/live", h.GetLiveness)
	r.GET("/health/ready", h.GetReadiness)
}

// GetHealth 完整健康报告
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp := apitypes.HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		Components: map[string]string{
			"oracle": h.oracleMode,
		},
	}
	if err := h.probeStorage(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Components["storage"] = err.Error()
	} else {
		resp.Components["storage"] = "ok"
	}
	c.JSON(http.StatusOK, resp)
}

// GetLiveness 存活检查
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// GetReadiness 就绪检查
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	if err := h.probeStorage(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) probeStorage(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := h.store.Exists(ctx, readyProbeKey)
	return err
}
