// @title           全渠道履约 API
// @version         1.0
// @description     订单状态机、库存占用、渠道刊登与渠道集成审计
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger, err := provideLogger(cfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	// 依赖链与wire.go一致：Infra ← Services ← Handlers ← Engine ← Server
	infra, cleanup, err := provideInfra(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("初始化基础设施失败", zap.Error(err))
	}
	defer cleanup()

	services := provideServices(infra)
	handlers := provideHandlers(infra, services)
	engine := provideGinEngine(infra, handlers, provideAuthMiddleware(cfg))
	srv := provideServer(cfg, engine)

	go func() {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.Server.Mode),
			zap.String("adapter", cfg.Integration.Adapter),
			zap.Bool("outbox_inline", cfg.Outbox.Inline),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
}
