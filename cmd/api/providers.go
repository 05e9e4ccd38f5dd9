package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/bootstrap"
	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
	"github.com/xiebiao/omnichannel/internal/interface/http/middleware"
	"github.com/xiebiao/omnichannel/internal/interface/http/router"
	"github.com/xiebiao/omnichannel/pkg/jwt"
	"github.com/xiebiao/omnichannel/pkg/logger"
)

// provideLogger 从配置创建zap logger
func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
}

// provideInfra 连接外部资源，cleanup在退出时关闭它们
func provideInfra(ctx context.Context, cfg *config.Config, log *zap.Logger) (*bootstrap.Infra, func(), error) {
	infra, err := bootstrap.NewInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return infra, func() { infra.Close(context.Background()) }, nil
}

func provideServices(infra *bootstrap.Infra) *bootstrap.Services {
	return infra.Services()
}

func provideHandlers(infra *bootstrap.Infra, services *bootstrap.Services) *router.Handlers {
	return bootstrap.NewHandlers(services, infra.HealthChecks())
}

// provideAuthMiddleware 运营Token只校验不签发
func provideAuthMiddleware(cfg *config.Config) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer))
}

// provideGinEngine 注册全部路由；release模式下不开放swagger
func provideGinEngine(infra *bootstrap.Infra, h *router.Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	cfg := infra.Config
	return router.New(
		router.Options{Mode: cfg.Server.Mode, EnableSwagger: cfg.Server.Mode != gin.ReleaseMode},
		h, auth, infra.Logger, infra.Metrics, infra.Registry,
	)
}

func provideServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
