// worker 后台进程：发件箱重试投递，消费渠道连接器转发的事件
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/omnichannel/internal/application/channelevent"
	"github.com/xiebiao/omnichannel/internal/bootstrap"
	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
	"github.com/xiebiao/omnichannel/pkg/logger"
	"github.com/xiebiao/omnichannel/pkg/mq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Sync()
	zl = zl.With(zap.String("process", "worker"))

	infra, err := bootstrap.NewInfra(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("初始化基础设施失败", zap.Error(err))
	}
	defer infra.Close(context.Background())

	services := infra.Services()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return services.Relay.Run(gctx)
	})

	if cfg.RabbitMQ.URL != "" && cfg.RabbitMQ.InboundQueue != "" {
		consumer, err := mq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, "topic",
			cfg.RabbitMQ.InboundQueue, []string{cfg.RabbitMQ.InboundPrefix}, zl)
		if err != nil {
			zl.Fatal("连接RabbitMQ失败", zap.Error(err))
		}
		defer consumer.Close()

		events := channelevent.NewConsumer(services.Intake, services.Authenticator, infra.Metrics, cfg.RabbitMQ.InboundQueue)
		g.Go(func() error {
			return consumer.Consume(gctx, events.Handle)
		})
	}

	// 指标端口 = API端口 + 1
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port+1),
		Handler:           promhttp.HandlerFor(infra.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("worker stopped with error", zap.Error(err))
		return
	}
	zl.Info("worker stopped")
}
