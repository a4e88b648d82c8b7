package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/weisyn/confstake/internal/api/http/handlers"
	"github.com/weisyn/confstake/internal/api/http/middleware"
	apiconfig "github.com/weisyn/confstake/internal/config/api"
	oracleconfig "github.com/weisyn/confstake/internal/config/oracle"
	logimpl "github.com/weisyn/confstake/internal/core/infrastructure/log"
	coreoracle "github.com/weisyn/confstake/internal/core/oracle"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/interfaces/settlement"
	"github.com/weisyn/confstake/pkg/interfaces/stake"
)

// idleTimeout 空闲连接超时
const idleTimeout = 60 * time.Second

// Server HTTP服务器
// 负责质押账本的HTTP API：路由、启动与停止
type Server struct {
	router     *gin.Engine  // Gin路由引擎
	httpServer *http.Server // 标准HTTP服务器
	options    apiconfig.HTTPConfig
	logger     log.Logger
	addr       net.Addr // 实际监听地址，启动后有效
}

// ServerParams HTTP服务器依赖
type ServerParams struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Options       *apiconfig.APIOptions
	OracleOptions *oracleconfig.OracleOptions
	Logger        log.Logger `optional:"true"`

	Protocol   stake.RedemptionProtocol
	Settlement settlement.Settlement `optional:"true"`
	Outbox     *coreoracle.Outbox    `optional:"true"`
	EventBus   event.EventBus        `optional:"true"`
	Store      storage.BadgerStore   `optional:"true"`
}

// RouterDeps 路由依赖，可为空的依赖对应的路由不注册
type RouterDeps struct {
	Logger     log.Logger
	Options    apiconfig.HTTPConfig
	Protocol   stake.RedemptionProtocol
	Balances   settlement.Settlement
	Requests   handlers.RequestLister
	EventBus   event.EventBus
	Store      storage.BadgerStore
	OracleMode string
}

// NewServer 创建HTTP服务器，并在启用时注册生命周期钩子
func NewServer(params ServerParams) (*Server, error) {
	if params.Protocol == nil {
		return nil, fmt.Errorf("HTTP服务器需要赎回协议")
	}
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logimpl.NewModuleLogger(params.Logger, "api")
	oracleMode := "external"
	if params.OracleOptions != nil && params.OracleOptions.Enabled {
		oracleMode = "local"
	}
	deps := RouterDeps{
		Logger:     logger,
		Options:    params.Options.HTTP,
		Protocol:   params.Protocol,
		Balances:   params.Settlement,
		EventBus:   params.EventBus,
		Store:      params.Store,
		OracleMode: oracleMode,
	}
	if params.Outbox != nil {
		deps.Requests = params.Outbox
	}

	s := &Server{
		router:  NewRouter(deps),
		options: params.Options.HTTP,
		logger:  logger,
	}

	if !s.options.Enabled {
		s.infof("HTTP API 已在配置中禁用")
		return s, nil
	}
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return s, nil
}

// NewRouter 创建路由引擎并注册全部路由
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewRequestID().Middleware())
	router.Use(middleware.NewLogger(deps.Logger).Middleware())

	if deps.Options.EnableMetrics {
		router.Use(middleware.NewMetrics().Middleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	handlers.NewHealthHandler(deps.Store, deps.OracleMode).RegisterRoutes(router)

	v1 := router.Group("/api/v1",
		middleware.ErrorHandler(deps.Logger),
		middleware.BodyLimit(deps.Options.MaxRequestSize),
		middleware.NewRateLimit(deps.Options.ReadRateLimit, deps.Options.WriteRateLimit).Middleware(),
	)
	handlers.NewStakeHandler(deps.Protocol).RegisterRoutes(v1)
	handlers.NewQueryHandler(deps.Protocol, deps.Balances).RegisterRoutes(v1)
	handlers.NewOracleHandler(deps.Protocol, deps.Requests).RegisterRoutes(v1)
	if deps.EventBus != nil {
		handlers.NewEventsHandler(deps.EventBus).RegisterRoutes(v1)
	}

	return router
}

// Handler 返回路由引擎
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回实际监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Start 启动HTTP服务器
//
// 同步完成端口监听，端口被占用时直接返回错误；请求处理在后台协程中进行
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return fmt.Errorf("HTTP服务器监听 %s 失败: %w", s.options.Address, err)
	}
	s.addr = listener.Addr()

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errorf("HTTP服务器异常退出: %v", err)
		}
	}()

	s.infof("HTTP服务器启动成功，监听地址: %s", s.addr)
	s.infof("API端点: http://%s/api/v1/", s.addr)
	return nil
}

// Stop 优雅停止HTTP服务器
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器停止失败: %w", err)
	}
	s.infof("HTTP服务器已停止")
	return nil
}

func (s *Server) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
	}
}

func (s *Server) errorf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}
