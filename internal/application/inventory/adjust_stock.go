package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/domain/shared"
)

// AdjustStockUseCase 人工调整实物库存（盘点、报损等）
type AdjustStockUseCase struct {
	ledger    *inventory.Ledger
	txManager shared.TxManager
	logger    *zap.Logger
}

// NewAdjustStockUseCase 创建库存调整用例
func NewAdjustStockUseCase(ledger *inventory.Ledger, txManager shared.TxManager, logger *zap.Logger) *AdjustStockUseCase {
	return &AdjustStockUseCase{ledger: ledger, txManager: txManager, logger: logger}
}

// AdjustStockRequest 调整请求，Delta带符号
type AdjustStockRequest struct {
	ProductID uint
	Delta     int
	Reference string
}

// StockResponse 调整后的库存
type StockResponse struct {
	ProductID     uint   `json:"productId"`
	SKU           string `json:"sku"`
	TotalStock    int    `json:"totalStock"`
	ReservedStock int    `json:"reservedStock"`
	Available     int    `json:"available"`
}

// Execute 执行调整
func (uc *AdjustStockUseCase) Execute(ctx context.Context, req AdjustStockRequest) (*StockResponse, error) {
	var p *product.Product
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		p, err = uc.ledger.Adjust(txCtx, req.ProductID, req.Delta, req.Reference)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock adjusted",
		zap.Uint("product_id", p.ID),
		zap.Int("delta", req.Delta),
		zap.Int("total_stock", p.TotalStock),
	)

	return &StockResponse{
		ProductID:     p.ID,
		SKU:           p.SKU,
		TotalStock:    p.TotalStock,
		ReservedStock: p.ReservedStock,
		Available:     p.Available(),
	}, nil
}
