package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiebiao/omnichannel/internal/domain/order"
	"github.com/xiebiao/omnichannel/pkg/bulk"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

// BulkActionUseCase 批量订单操作
// 逐个执行，每一项独立提交，失败项不影响其他项
type BulkActionUseCase struct {
	transitions *TransitionService
	metrics     *metrics.Metrics
}

// NewBulkActionUseCase 创建批量操作用例
func NewBulkActionUseCase(transitions *TransitionService, m *metrics.Metrics) *BulkActionUseCase {
	return &BulkActionUseCase{transitions: transitions, metrics: m}
}

// Execute 批量执行confirm|cancel|pack|ship
func (uc *BulkActionUseCase) Execute(ctx context.Context, action Action, orderIDs []uint) (*bulk.Result[uint], error) {
	var fn func(ctx context.Context, id uint) (*order.Order, error)
	switch Action(strings.ToLower(string(action))) {
	case ActionConfirm:
		fn = uc.transitions.Confirm
	case ActionCancel:
		fn = uc.transitions.Cancel
	case ActionPack:
		fn = uc.transitions.Pack
	case ActionShip:
		fn = uc.transitions.Ship
	default:
		return nil, order.ErrUnsupportedAction.WithDetail("bulk %s", action)
	}

	label := fmt.Sprintf("order_%s", strings.ToLower(string(action)))
	res := bulk.Process(ctx, orderIDs,
		func(ctx context.Context, id uint) error {
			_, err := fn(ctx, id)
			return err
		},
		func(_ uint, err error) {
			uc.metrics.BulkItemsTotal.WithLabelValues(label, metrics.Result(err)).Inc()
		},
	)
	return &res, nil
}
