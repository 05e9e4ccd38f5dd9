package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
)

// NewDB 初始化数据库连接
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc:        time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// AutoMigrate 建表/补列
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductModel{},
		&InventoryMovementModel{},
		&ChannelModel{},
		&ChannelListingModel{},
		&ListingHistoryModel{},
		&OrderModel{},
		&OrderItemModel{},
		&IntegrationLogModel{},
		&OutboxIntentModel{},
	)
}

type ProductModel struct {
	ID              uint              `gorm:"primaryKey"`
	SKU             string            `gorm:"uniqueIndex;size:64;not null;comment:SKU"`
	Name            string            `gorm:"size:200;not null"`
	BasePrice       int64             `gorm:"not null;comment:基础价(分)"`
	TotalStock      int               `gorm:"not null;default:0;comment:实物库存"`
	ReservedStock   int               `gorm:"not null;default:0;comment:预留库存"`
	Status          string            `gorm:"index:idx_status_created;size:16;not null;default:ACTIVE"`
	OversellPolicy  string            `gorm:"size:16;not null;default:REJECT"`
	OversellLimit   int               `gorm:"not null;default:0"`
	Description     string            `gorm:"type:text"`
	MetaTitle       string            `gorm:"size:255"`
	MetaDescription string            `gorm:"size:500"`
	Attributes      map[string]string `gorm:"serializer:json;type:json"`
	Images          []string          `gorm:"serializer:json;type:json"`
	CreatedAt       time.Time         `gorm:"index:idx_status_created"`
	UpdatedAt       time.Time
}

func (ProductModel) TableName() string { return "products" }

type InventoryMovementModel struct {
	ID            uint      `gorm:"primaryKey"`
	ProductID     uint      `gorm:"index:idx_product_created;not null"`
	Type          string    `gorm:"size:20;not null"`
	Quantity      int       `gorm:"not null;comment:带符号数量"`
	Reference     string    `gorm:"index;size:64"`
	TotalAfter    int       `gorm:"not null"`
	ReservedAfter int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"index:idx_product_created"`
}

func (InventoryMovementModel) TableName() string { return "inventory_movements" }

type ChannelModel struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"uniqueIndex;size:100;not null"`
	Enabled       bool   `gorm:"not null;default:true"`
	Sandbox       bool   `gorm:"not null;default:false"`
	BaseURL       string `gorm:"size:500"`
	APIKey        string `gorm:"size:1024;comment:密文"`
	WebhookSecret string `gorm:"size:1024;comment:密文"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ChannelModel) TableName() string { return "channels" }

type ChannelListingModel struct {
	ID               uint   `gorm:"primaryKey"`
	ProductID        uint   `gorm:"uniqueIndex:uk_product_channel;not null"`
	ChannelID        uint   `gorm:"uniqueIndex:uk_product_channel;index;not null"`
	MarketplaceSKU   string `gorm:"size:128"`
	Status           string `gorm:"size:16;not null"`
	CurrentPrice     int64  `gorm:"not null"`
	DiscountAmount   int64  `gorm:"not null;default:0"`
	MarkupAmount     int64  `gorm:"not null;default:0"`
	FollowsBasePrice bool   `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ChannelListingModel) TableName() string { return "channel_listings" }

type ListingHistoryModel struct {
	ID             uint      `gorm:"primaryKey"`
	ListingID      uint      `gorm:"index;not null"`
	PreviousStatus string    `gorm:"size:16"`
	NewStatus      string    `gorm:"size:16;not null"`
	Reason         string    `gorm:"size:500"`
	CreatedAt      time.Time `gorm:"index"`
}

func (ListingHistoryModel) TableName() string { return "channel_listing_histories" }

type OrderModel struct {
	ID                  uint             `gorm:"primaryKey"`
	ChannelID           uint             `gorm:"uniqueIndex:uk_channel_external;index:idx_channel_status;not null"`
	ExternalOrderID     string           `gorm:"uniqueIndex:uk_channel_external;size:128;not null"`
	Status              string           `gorm:"index:idx_channel_status;size:16;not null"`
	TotalAmount         int64            `gorm:"not null;comment:订单总金额(分)"`
	DiscountCode        string           `gorm:"size:64"`
	Items               []OrderItemModel `gorm:"foreignKey:OrderID"`
	CustomerCancelledAt *time.Time
	WarehouseReceivedAt *time.Time
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time
}

func (OrderModel) TableName() string { return "orders" }

type OrderItemModel struct {
	ID         uint  `gorm:"primaryKey"`
	OrderID    uint  `gorm:"index;not null"`
	ProductID  uint  `gorm:"index;not null"`
	Quantity   int   `gorm:"not null"`
	UnitPrice  int64 `gorm:"not null;comment:下单时单价(分)"`
	TotalPrice int64 `gorm:"not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// IntegrationLogModel 载荷用text列保存：JSON列会规范化键序与空白，重试要求按原字节重放
type IntegrationLogModel struct {
	ID        uint      `gorm:"primaryKey"`
	ChannelID uint      `gorm:"index:idx_channel_created;not null"`
	Operation string    `gorm:"index;size:40;not null"`
	Payload   string    `gorm:"type:mediumtext;not null"`
	Response  string    `gorm:"type:mediumtext"`
	Status    string    `gorm:"index;size:16;not null"`
	Error     string    `gorm:"type:text"`
	RetryOf   *uint     `gorm:"index"`
	CreatedAt time.Time `gorm:"index:idx_channel_created"`
}

func (IntegrationLogModel) TableName() string { return "integration_logs" }

type OutboxIntentModel struct {
	ID            string    `gorm:"primaryKey;size:36"`
	ChannelID     uint      `gorm:"not null"`
	Operation     string    `gorm:"size:40;not null"`
	Payload       string    `gorm:"type:mediumtext;not null"`
	Status        string    `gorm:"index:idx_status_next;size:16;not null"`
	Attempts      int       `gorm:"not null;default:0"`
	NextAttemptAt time.Time `gorm:"index:idx_status_next"`
	LastError     string    `gorm:"type:text"`
	LogID         *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (OutboxIntentModel) TableName() string { return "integration_outbox" }
