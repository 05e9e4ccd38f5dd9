// Package bootstrap 把仓储、渠道适配器和配置组装成应用服务与HTTP处理器
//
// cmd/api 和 cmd/worker 共用这里的组装逻辑；wire.go 的 Provider 也指向这些函数。
package bootstrap

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/omnichannel/internal/application/channelevent"
	appintegration "github.com/xiebiao/omnichannel/internal/application/integration"
	appinventory "github.com/xiebiao/omnichannel/internal/application/inventory"
	applisting "github.com/xiebiao/omnichannel/internal/application/listing"
	apporder "github.com/xiebiao/omnichannel/internal/application/order"
	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/domain/shared"
	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/omnichannel/internal/interface/http/handler"
	"github.com/xiebiao/omnichannel/internal/interface/http/router"
	"github.com/xiebiao/omnichannel/pkg/circuitbreaker"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/secrets"
)

// Repositories 全部仓储端口
type Repositories struct {
	Tx        shared.TxManager
	Products  product.Repository
	Movements inventory.MovementRepository
	Orders    order.Repository
	Channels  channel.Repository
	Listings  channel.ListingRepository
	Histories channel.HistoryRepository
	Logs      integration.LogRepository
	Outbox    integration.OutboxRepository
}

// MySQLRepositories GORM实现
func MySQLRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tx:        mysql.NewTxManager(db),
		Products:  mysql.NewProductRepository(db),
		Movements: mysql.NewMovementRepository(db),
		Orders:    mysql.NewOrderRepository(db),
		Channels:  mysql.NewChannelRepository(db),
		Listings:  mysql.NewListingRepository(db),
		Histories: mysql.NewHistoryRepository(db),
		Logs:      mysql.NewIntegrationLogRepository(db),
		Outbox:    mysql.NewOutboxRepository(db),
	}
}

// MemoryRepositories 内存实现，用于测试和本地演示
func MemoryRepositories(s *memory.Store) *Repositories {
	return &Repositories{
		Tx:        s,
		Products:  s.Products(),
		Movements: s.Movements(),
		Orders:    s.Orders(),
		Channels:  s.Channels(),
		Listings:  s.Listings(),
		Histories: s.Histories(),
		Logs:      s.IntegrationLogs(),
		Outbox:    s.Outbox(),
	}
}

// Deps 组装服务需要的外部依赖
type Deps struct {
	Adapter  integration.Adapter
	Breakers *circuitbreaker.Group
	Relay    appintegration.RelayConfig
	Box      *secrets.Box
	Dedupe   channelevent.Deduper // 可以为nil
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Services 应用层服务
type Services struct {
	Dispatcher  *appintegration.Dispatcher
	Relay       *appintegration.OutboxRelay
	Transitions *apporder.TransitionService

	CreateOrder *apporder.CreateOrderUseCase
	OrderQuery  *apporder.QueryService
	Documents   *apporder.DocumentService
	Actions     *apporder.ActionService
	BulkOrders  *apporder.BulkActionUseCase
	PullOrders  *apporder.PullOrdersUseCase

	AdjustStock *appinventory.AdjustStockUseCase
	Movements   *appinventory.MovementQuery

	CreateListing *applisting.CreateListingUseCase
	ListingStatus *applisting.StatusService
	BulkListings  *applisting.BulkStatusUseCase
	ListingQuery  *applisting.QueryService

	Reconciler    *channelevent.Reconciler
	Intake        *channelevent.Intake
	Poller        *channelevent.Poller
	Authenticator *channelevent.WebhookAuthenticator
}

// NewServices 按依赖顺序创建全部服务
func NewServices(repos *Repositories, d Deps) *Services {
	dispatcher := appintegration.NewDispatcher(d.Adapter, repos.Logs, d.Breakers, d.Metrics, d.Logger)
	relay := appintegration.NewOutboxRelay(repos.Outbox, dispatcher, d.Relay, d.Metrics, d.Logger)
	ledger := inventory.NewLedger(repos.Products, repos.Movements)
	transitions := apporder.NewTransitionService(repos.Orders, ledger, repos.Tx, relay, d.Metrics, d.Logger)
	documents := apporder.NewDocumentService(repos.Orders, dispatcher)
	reconciler := channelevent.NewReconciler(repos.Orders, transitions, d.Logger)
	statuses := applisting.NewStatusService(repos.Products, repos.Channels, repos.Listings, repos.Histories, repos.Tx, relay, d.Metrics, d.Logger)

	return &Services{
		Dispatcher:  dispatcher,
		Relay:       relay,
		Transitions: transitions,

		CreateOrder: apporder.NewCreateOrderUseCase(repos.Orders, repos.Products, repos.Channels, repos.Tx),
		OrderQuery:  apporder.NewQueryService(repos.Orders, repos.Movements),
		Documents:   documents,
		Actions:     apporder.NewActionService(transitions, documents, reconciler, repos.Orders),
		BulkOrders:  apporder.NewBulkActionUseCase(transitions, d.Metrics),
		PullOrders:  apporder.NewPullOrdersUseCase(repos.Channels, repos.Products, repos.Orders, repos.Tx, dispatcher, d.Logger),

		AdjustStock: appinventory.NewAdjustStockUseCase(ledger, repos.Tx, d.Logger),
		Movements:   appinventory.NewMovementQuery(repos.Products, repos.Movements),

		CreateListing: applisting.NewCreateListingUseCase(repos.Products, repos.Channels, repos.Listings, repos.Histories, repos.Tx, dispatcher, d.Metrics, d.Logger),
		ListingStatus: statuses,
		BulkListings:  applisting.NewBulkStatusUseCase(statuses, d.Metrics),
		ListingQuery:  applisting.NewQueryService(repos.Listings, repos.Histories),

		Reconciler:    reconciler,
		Intake:        channelevent.NewIntake(reconciler, d.Dedupe, d.Logger),
		Poller:        channelevent.NewPoller(repos.Channels, dispatcher, d.Logger),
		Authenticator: channelevent.NewWebhookAuthenticator(repos.Channels, d.Box),
	}
}

// NewHandlers 由服务创建HTTP处理器
func NewHandlers(s *Services, checks map[string]handler.HealthCheck) *router.Handlers {
	return &router.Handlers{
		Order:       handler.NewOrderHandler(s.CreateOrder, s.OrderQuery, s.Actions, s.BulkOrders, s.PullOrders, s.Poller),
		Channel:     handler.NewChannelHandler(s.PullOrders, s.Authenticator, s.Intake),
		Listing:     handler.NewListingHandler(s.CreateListing, s.ListingStatus, s.BulkListings, s.ListingQuery),
		Product:     handler.NewProductHandler(s.AdjustStock, s.Movements),
		Integration: handler.NewIntegrationHandler(s.Dispatcher, s.Relay),
		Health:      handler.NewHealthHandler(checks),
	}
}

// RelayConfig 配置转换
func RelayConfig(cfg config.OutboxConfig) appintegration.RelayConfig {
	return appintegration.RelayConfig{
		Inline:       cfg.Inline,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		BaseBackoff:  cfg.BaseBackoff,
		Lease:        cfg.Lease,
	}
}

// BreakerGroup 按配置创建熔断器组，状态变化写日志
func BreakerGroup(cfg config.BreakerConfig, log *zap.Logger) *circuitbreaker.Group {
	return circuitbreaker.NewGroup(circuitbreaker.Settings{
		MaxRequests:      cfg.MaxRequests,
		Interval:         cfg.Interval,
		Timeout:          cfg.Timeout,
		FailureThreshold: cfg.FailureThreshold,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
