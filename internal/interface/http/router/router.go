// Package router 注册全部HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/interface/http/handler"
	"github.com/xiebiao/omnichannel/internal/interface/http/middleware"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

// Handlers 全部HTTP处理器
type Handlers struct {
	Order       *handler.OrderHandler
	Channel     *handler.ChannelHandler
	Listing     *handler.ListingHandler
	Product     *handler.ProductHandler
	Integration *handler.IntegrationHandler
	Health      *handler.HealthHandler
}

// Options 路由级开关
type Options struct {
	Mode          string // debug | release | test
	EnableSwagger bool
}

// New 创建Gin引擎
// Webhook、健康检查、指标和文档之外的接口都需要运营Token
func New(
	opts Options,
	h *Handlers,
	auth *middleware.AuthMiddleware,
	log *zap.Logger,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, m))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	// 渠道推送用共享密钥认证
	v1.POST("/channels/:id/events", h.Channel.ReceiveEvent)

	api := v1.Group("")
	api.Use(auth.RequireOperator())
	{
		orders := api.Group("/orders")
		{
			orders.POST("", h.Order.CreateOrder)
			orders.GET("", h.Order.ListOrders)
			orders.POST("/bulk", h.Order.BulkAction)
			orders.POST("/pull", h.Order.PullAll)
			orders.POST("/poll-updates", h.Order.PollUpdates)
			orders.GET("/:id", h.Order.GetOrder)
			orders.POST("/:id/actions", h.Order.ExecuteAction)
			orders.GET("/:id/movements", h.Order.Movements)
		}

		api.POST("/channels/:id/pull", h.Channel.PullOrders)

		listings := api.Group("/listings")
		{
			listings.POST("", h.Listing.CreateListing)
			listings.POST("/bulk-status", h.Listing.BulkStatus)
			listings.PATCH("/:id/status", h.Listing.UpdateStatus)
			listings.PATCH("/:id/price", h.Listing.UpdatePrice)
			listings.GET("/:id/history", h.Listing.History)
		}

		products := api.Group("/products")
		{
			products.GET("/:id/movements", h.Product.Movements)
			products.POST("/:id/stock-adjustments", h.Product.AdjustStock)
			products.GET("/:id/listings", h.Listing.ByProduct)
		}

		integrations := api.Group("/integrations")
		{
			integrations.GET("", h.Integration.ListLogs)
			integrations.GET("/outbox", h.Integration.ListIntents)
			integrations.POST("/outbox/:id/requeue", h.Integration.Requeue)
			integrations.POST("/:id/retry", h.Integration.Retry)
		}
	}

	return r
}
