package listing

import (
	"context"

	"github.com/xiebiao/omnichannel/internal/domain/channel"
	"github.com/xiebiao/omnichannel/pkg/bulk"
	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
	"github.com/xiebiao/omnichannel/pkg/metrics"
)

// BulkStatusUseCase 批量变更刊登状态，逐项独立提交
type BulkStatusUseCase struct {
	statuses *StatusService
	metrics  *metrics.Metrics
}

// NewBulkStatusUseCase 创建批量用例
func NewBulkStatusUseCase(statuses *StatusService, m *metrics.Metrics) *BulkStatusUseCase {
	return &BulkStatusUseCase{statuses: statuses, metrics: m}
}

// Execute 对每个刊登执行UpdateStatus
func (uc *BulkStatusUseCase) Execute(ctx context.Context, target channel.ListingStatus, reason string, listingIDs []uint) (*bulk.Result[uint], error) {
	if !target.Valid() {
		return nil, apperrors.ErrInvalidParams.WithDetail("unknown listing status %s", target)
	}

	label := "listing_" + string(target)
	res := bulk.Process(ctx, listingIDs,
		func(ctx context.Context, id uint) error {
			_, err := uc.statuses.UpdateStatus(ctx, id, target, reason)
			return err
		},
		func(_ uint, err error) {
			uc.metrics.BulkItemsTotal.WithLabelValues(label, metrics.Result(err)).Inc()
		},
	)
	return &res, nil
}
