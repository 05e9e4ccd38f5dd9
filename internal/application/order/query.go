package order

import (
	"context"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/order"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

// QueryService 订单查询
type QueryService struct {
	orders    order.Repository
	movements inventory.MovementRepository
}

// NewQueryService 创建查询服务
func NewQueryService(orders order.Repository, movements inventory.MovementRepository) *QueryService {
	return &QueryService{orders: orders, movements: movements}
}

// ListOrdersRequest 订单列表请求
type ListOrdersRequest struct {
	Status    string
	ChannelID uint
	Page      int
	PageSize  int
}

// ListOrdersResponse 订单列表响应
type ListOrdersResponse struct {
	Orders   []*OrderResponse
	Total    int64
	Page     int
	PageSize int
}

// Get 订单详情
func (s *QueryService) Get(ctx context.Context, orderID uint) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToResponse(o), nil
}

// List 分页查询，默认每页25条，最多100条
func (s *QueryService) List(ctx context.Context, req ListOrdersRequest) (*ListOrdersResponse, error) {
	status := order.Status(req.Status)
	if status != "" && !status.Valid() {
		return nil, apperrors.ErrInvalidParams.WithDetail("unknown status %s", req.Status)
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 25
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	orders, total, err := s.orders.List(ctx, order.ListParams{
		Status:    status,
		ChannelID: req.ChannelID,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		list = append(list, ToResponse(o))
	}
	return &ListOrdersResponse{Orders: list, Total: total, Page: req.Page, PageSize: req.PageSize}, nil
}

// Movements 订单产生的库存流水
func (s *QueryService) Movements(ctx context.Context, orderID uint) ([]*inventory.Movement, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.movements.ListByReference(ctx, order.ReferenceFor(orderID))
}
