package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/infrastructure/channeladapter"
	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/omnichannel/internal/interface/http/handler"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/secrets"
	"github.com/xiebiao/omnichannel/pkg/tracing"
)

// Infra 进程级外部资源
type Infra struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Redis    *goredis.Client // redis.enabled=false 时为nil
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Adapter  integration.Adapter
	Box      *secrets.Box

	closers []func(ctx context.Context) error
}

// NewInfra 按配置连接MySQL、Redis、渠道适配器并初始化指标和链路追踪
// 出错时已经打开的资源会被关闭
func NewInfra(ctx context.Context, cfg *config.Config, log *zap.Logger) (infra *Infra, err error) {
	infra = &Infra{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			infra.Close(ctx)
			infra = nil
		}
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			return infra, err
		}
		infra.closers = append(infra.closers, shutdown)
		log.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	infra.Registry = prometheus.NewRegistry()
	infra.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	infra.Metrics = metrics.New(infra.Registry)

	if infra.Box, err = secrets.New(cfg.Secrets.ChannelKey); err != nil {
		return infra, err
	}
	if !infra.Box.Enabled() {
		log.Warn("channel secrets stored in plaintext, configure secrets.channel_key")
	}

	if infra.DB, err = mysql.NewDB(cfg, log); err != nil {
		return infra, err
	}
	infra.closers = append(infra.closers, func(context.Context) error {
		sqlDB, err := infra.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.Redis.Enabled {
		if infra.Redis, err = redis.NewClient(ctx, cfg.Redis, log); err != nil {
			return infra, err
		}
		infra.closers = append(infra.closers, func(context.Context) error { return infra.Redis.Close() })
	}

	adapter, closer, err := channeladapter.New(cfg, infra.Metrics, log)
	if err != nil {
		return infra, err
	}
	infra.Adapter = adapter
	infra.closers = append(infra.closers, closeFunc(closer))

	return infra, nil
}

// Services 基于MySQL仓储组装应用服务
func (i *Infra) Services() *Services {
	deps := Deps{
		Adapter:  i.Adapter,
		Breakers: BreakerGroup(i.Config.Integration.Breaker, i.Logger),
		Relay:    RelayConfig(i.Config.Outbox),
		Box:      i.Box,
		Metrics:  i.Metrics,
		Logger:   i.Logger,
	}
	if i.Redis != nil {
		deps.Dedupe = redis.NewEventGuard(i.Redis, i.Config.Redis.EventTTL)
	}
	return NewServices(MySQLRepositories(i.DB), deps)
}

// HealthChecks 已连接依赖的探活
func (i *Infra) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := i.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if i.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return i.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close 逆序关闭全部资源
func (i *Infra) Close(ctx context.Context) {
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		if err := i.closers[idx](ctx); err != nil {
			i.Logger.Warn("close resource failed", zap.Error(err))
		}
	}
	i.closers = nil
}

func closeFunc(c io.Closer) func(context.Context) error {
	return func(context.Context) error {
		if c == nil {
			return nil
		}
		if err := c.Close(); err != nil {
			return fmt.Errorf("关闭渠道适配器失败: %w", err)
		}
		return nil
	}
}
