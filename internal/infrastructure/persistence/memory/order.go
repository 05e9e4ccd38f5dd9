package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/order"
)

type orderRepository struct{ s *Store }

// Orders 订单仓储
func (s *Store) Orders() order.Repository { return &orderRepository{s: s} }

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.s.with(ctx, func(t *tables) error {
		for _, existing := range t.orders {
			if existing.ChannelID == o.ChannelID && existing.ExternalOrderID == o.ExternalOrderID {
				return order.ErrDuplicateExternalOrder.WithDetail("channel=%d,external=%s", o.ChannelID, o.ExternalOrderID)
			}
		}
		now := time.Now()
		o.ID = t.next("orders")
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.UpdatedAt = now
		for i := range o.Items {
			o.Items[i].ID = t.next("order_items")
			o.Items[i].OrderID = o.ID
		}
		t.orders[o.ID] = cloneOrder(o)
		return nil
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var out *order.Order
	err := r.s.with(ctx, func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

func (r *orderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepository) FindByExternalID(ctx context.Context, channelID uint, externalOrderID string) (*order.Order, error) {
	var out *order.Order
	err := r.s.with(ctx, func(t *tables) error {
		for _, o := range t.orders {
			if o.ChannelID == channelID && o.ExternalOrderID == externalOrderID {
				out = cloneOrder(o)
				return nil
			}
		}
		return order.ErrOrderNotFound
	})
	return out, err
}

func (r *orderRepository) ExistsByExternalID(ctx context.Context, channelID uint, externalOrderID string) (bool, error) {
	_, err := r.FindByExternalID(ctx, channelID, externalOrderID)
	if err == order.ErrOrderNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status order.Status) error {
	return r.update(ctx, id, func(o *order.Order) { o.Status = status })
}

func (r *orderRepository) StampCustomerCancelled(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, func(o *order.Order) { o.CustomerCancelledAt = &at })
}

func (r *orderRepository) StampWarehouseReceived(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, func(o *order.Order) { o.WarehouseReceivedAt = &at })
}

func (r *orderRepository) update(ctx context.Context, id uint, fn func(o *order.Order)) error {
	return r.s.with(ctx, func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		fn(o)
		o.UpdatedAt = time.Now()
		return nil
	})
}

func (r *orderRepository) List(ctx context.Context, params order.ListParams) ([]*order.Order, int64, error) {
	var matched []*order.Order
	err := r.s.with(ctx, func(t *tables) error {
		for _, o := range t.orders {
			if params.Status != "" && o.Status != params.Status {
				continue
			}
			if params.ChannelID != 0 && o.ChannelID != params.ChannelID {
				continue
			}
			matched = append(matched, cloneOrder(o))
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, params.Page, params.PageSize, 25, 100), int64(len(matched)), err
}
