package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

type channelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) channel.Repository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, ch *channel.Channel) error {
	model := &ChannelModel{
		Name:          ch.Name,
		Enabled:       ch.Enabled,
		Sandbox:       ch.Sandbox,
		BaseURL:       ch.BaseURL,
		APIKey:        ch.APIKey,
		WebhookSecret: ch.WebhookSecret,
	}
	// Enabled=false 是零值，不显式Select会被列默认值true覆盖
	err := getDB(ctx, r.db).
		Select("Name", "Enabled", "Sandbox", "BaseURL", "APIKey", "WebhookSecret", "CreatedAt", "UpdatedAt").
		Create(model).Error
	if err != nil {
		if isDuplicateError(err) {
			return apperrors.NewWithReason(apperrors.ErrCodeDuplicateEntry, "DUPLICATE_CHANNEL", "渠道名称已存在").WithDetail("%s", ch.Name)
		}
		return apperrors.Wrap(err, "创建渠道失败")
	}
	ch.ID = model.ID
	ch.CreatedAt = model.CreatedAt
	ch.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *channelRepository) FindByID(ctx context.Context, id uint) (*channel.Channel, error) {
	var model ChannelModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, channel.ErrChannelNotFound.WithDetail("id=%d", id)
		}
		return nil, apperrors.Wrap(err, "查询渠道失败")
	}
	return toChannelEntity(&model), nil
}

func (r *channelRepository) ListEnabled(ctx context.Context) ([]*channel.Channel, error) {
	var models []ChannelModel
	if err := getDB(ctx, r.db).Where("enabled = ?", true).Order("name ASC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询渠道列表失败")
	}
	out := make([]*channel.Channel, len(models))
	for i := range models {
		out[i] = toChannelEntity(&models[i])
	}
	return out, nil
}

func toChannelEntity(m *ChannelModel) *channel.Channel {
	return &channel.Channel{
		ID:            m.ID,
		Name:          m.Name,
		Enabled:       m.Enabled,
		Sandbox:       m.Sandbox,
		BaseURL:       m.BaseURL,
		APIKey:        m.APIKey,
		WebhookSecret: m.WebhookSecret,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) channel.ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, l *channel.Listing) error {
	model := toListingModel(l)
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return channel.ErrAlreadyListed.WithDetail("product=%d,channel=%d", l.ProductID, l.ChannelID)
		}
		return apperrors.Wrap(err, "创建渠道商品失败")
	}
	l.ID = model.ID
	l.CreatedAt = model.CreatedAt
	l.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *listingRepository) FindByID(ctx context.Context, id uint) (*channel.Listing, error) {
	return r.first(getDB(ctx, r.db), "id = ?", id)
}

func (r *listingRepository) LockByID(ctx context.Context, id uint) (*channel.Listing, error) {
	return r.first(getDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

func (r *listingRepository) FindByProductAndChannel(ctx context.Context, productID, channelID uint) (*channel.Listing, error) {
	return r.first(getDB(ctx, r.db), "product_id = ? AND channel_id = ?", productID, channelID)
}

func (r *listingRepository) first(db *gorm.DB, query string, args ...interface{}) (*channel.Listing, error) {
	var model ChannelListingModel
	if err := db.Where(query, args...).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, channel.ErrListingNotFound
		}
		return nil, apperrors.Wrap(err, "查询渠道商品失败")
	}
	return toListingEntity(&model), nil
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint, status channel.ListingStatus) error {
	result := getDB(ctx, r.db).Model(&ChannelListingModel{}).Where("id = ?", id).Update("status", string(status))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新渠道商品状态失败")
	}
	if result.RowsAffected == 0 {
		return channel.ErrListingNotFound
	}
	return nil
}

func (r *listingRepository) UpdatePrice(ctx context.Context, l *channel.Listing) error {
	result := getDB(ctx, r.db).Model(&ChannelListingModel{}).Where("id = ?", l.ID).Updates(map[string]interface{}{
		"current_price":      l.CurrentPrice,
		"discount_amount":    l.DiscountAmount,
		"markup_amount":      l.MarkupAmount,
		"follows_base_price": l.FollowsBasePrice,
		"updated_at":         l.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新渠道商品价格失败")
	}
	if result.RowsAffected == 0 {
		return channel.ErrListingNotFound
	}
	return nil
}

func (r *listingRepository) ListByProduct(ctx context.Context, productID uint) ([]*channel.Listing, error) {
	var models []ChannelListingModel
	if err := getDB(ctx, r.db).Where("product_id = ?", productID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询渠道商品失败")
	}
	out := make([]*channel.Listing, len(models))
	for i := range models {
		out[i] = toListingEntity(&models[i])
	}
	return out, nil
}

func toListingModel(l *channel.Listing) *ChannelListingModel {
	return &ChannelListingModel{
		ID:               l.ID,
		ProductID:        l.ProductID,
		ChannelID:        l.ChannelID,
		MarketplaceSKU:   l.MarketplaceSKU,
		Status:           string(l.Status),
		CurrentPrice:     l.CurrentPrice,
		DiscountAmount:   l.DiscountAmount,
		MarkupAmount:     l.MarkupAmount,
		FollowsBasePrice: l.FollowsBasePrice,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func toListingEntity(m *ChannelListingModel) *channel.Listing {
	return &channel.Listing{
		ID:               m.ID,
		ProductID:        m.ProductID,
		ChannelID:        m.ChannelID,
		MarketplaceSKU:   m.MarketplaceSKU,
		Status:           channel.ListingStatus(m.Status),
		CurrentPrice:     m.CurrentPrice,
		DiscountAmount:   m.DiscountAmount,
		MarkupAmount:     m.MarkupAmount,
		FollowsBasePrice: m.FollowsBasePrice,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) channel.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, h *channel.ListingHistory) error {
	model := &ListingHistoryModel{
		ListingID:      h.ListingID,
		PreviousStatus: string(h.PreviousStatus),
		NewStatus:      string(h.NewStatus),
		Reason:         h.Reason,
		CreatedAt:      h.CreatedAt,
	}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入上架历史失败")
	}
	h.ID = model.ID
	return nil
}

func (r *historyRepository) ListByListing(ctx context.Context, listingID uint) ([]*channel.ListingHistory, error) {
	var models []ListingHistoryModel
	if err := getDB(ctx, r.db).Where("listing_id = ?", listingID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询上架历史失败")
	}
	out := make([]*channel.ListingHistory, len(models))
	for i, m := range models {
		out[i] = &channel.ListingHistory{
			ID:             m.ID,
			ListingID:      m.ListingID,
			PreviousStatus: channel.ListingStatus(m.PreviousStatus),
			NewStatus:      channel.ListingStatus(m.NewStatus),
			Reason:         m.Reason,
			CreatedAt:      m.CreatedAt,
		}
	}
	return out, nil
}
