package channel

import (
	"fmt"
	"time"
)

// ListingStatus 渠道商品状态
type ListingStatus string

const (
	ListingListed    ListingStatus = "LISTED"
	ListingDelisted  ListingStatus = "DELISTED"
	ListingSuspended ListingStatus = "SUSPENDED"
)

// listingTransitions 上架状态流转表；LISTED→LISTED 不是合法变更
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingListed:    {ListingDelisted, ListingSuspended},
	ListingDelisted:  {ListingListed},
	ListingSuspended: {ListingListed, ListingDelisted},
}

// Valid 是否为已知状态
func (s ListingStatus) Valid() bool {
	_, ok := listingTransitions[s]
	return ok
}

// CanTransitionListing 查表判断from→to是否合法
func CanTransitionListing(from, to ListingStatus) bool {
	for _, allowed := range listingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Listing 商品在某个渠道上的刊登，(ProductID, ChannelID)唯一
type Listing struct {
	ID               uint
	ProductID        uint
	ChannelID        uint
	MarketplaceSKU   string
	Status           ListingStatus
	CurrentPrice     int64
	DiscountAmount   int64
	MarkupAmount     int64
	FollowsBasePrice bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultMarketplaceSKU 未指定渠道SKU时的默认值
func DefaultMarketplaceSKU(productID, channelID uint) string {
	return fmt.Sprintf("%d-%d", productID, channelID)
}

// TransitionTo 状态变更，返回变更前的状态
func (l *Listing) TransitionTo(target ListingStatus) (ListingStatus, error) {
	if !CanTransitionListing(l.Status, target) {
		return l.Status, ErrInvalidListingTransition.WithDetail("%s -> %s", l.Status, target)
	}
	prev := l.Status
	l.Status = target
	l.UpdatedAt = time.Now()
	return prev, nil
}

// PriceUpdate 价格字段的部分更新，nil表示不修改
type PriceUpdate struct {
	CurrentPrice     *int64
	DiscountAmount   *int64
	MarkupAmount     *int64
	FollowsBasePrice *bool
}

// ApplyPrice 应用价格字段，不经过状态机
func (l *Listing) ApplyPrice(u PriceUpdate) {
	if u.CurrentPrice != nil {
		l.CurrentPrice = *u.CurrentPrice
	}
	if u.DiscountAmount != nil {
		l.DiscountAmount = *u.DiscountAmount
	}
	if u.MarkupAmount != nil {
		l.MarkupAmount = *u.MarkupAmount
	}
	if u.FollowsBasePrice != nil {
		l.FollowsBasePrice = *u.FollowsBasePrice
	}
	l.UpdatedAt = time.Now()
}

// ListingHistory 上架状态变更记录，只追加
// 首次上架时 PreviousStatus 为空
type ListingHistory struct {
	ID             uint
	ListingID      uint
	PreviousStatus ListingStatus
	NewStatus      ListingStatus
	Reason         string
	CreatedAt      time.Time
}
