package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/domain/inventory"
	"github.com/xiebiao/omnichannel/internal/domain/product"
	"github.com/xiebiao/omnichannel/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/omnichannel/internal/testkit"
)

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := inventory.NewLedger(store.Products(), store.Movements())
	uc := NewAdjustStockUseCase(ledger, store, zap.NewNop())
	query := NewMovementQuery(store.Products(), store.Movements())
	p := testkit.SeedProduct(t, store, "SKU-1", testkit.WithStock(10, 4))

	t.Run("入库", func(t *testing.T) {
		resp, err := uc.Execute(ctx, AdjustStockRequest{ProductID: p.ID, Delta: 5})
		require.NoError(t, err)
		assert.Equal(t, 15, resp.TotalStock)
		assert.Equal(t, 11, resp.Available)
	})

	t.Run("报损", func(t *testing.T) {
		resp, err := uc.Execute(ctx, AdjustStockRequest{ProductID: p.ID, Delta: -3, Reference: "STOCKTAKE-7"})
		require.NoError(t, err)
		assert.Equal(t, 12, resp.TotalStock)
	})

	t.Run("delta为0", func(t *testing.T) {
		_, err := uc.Execute(ctx, AdjustStockRequest{ProductID: p.ID, Delta: 0})
		assert.ErrorIs(t, err, inventory.ErrInvalidDelta)
	})

	t.Run("实物库存不能为负", func(t *testing.T) {
		_, err := uc.Execute(ctx, AdjustStockRequest{ProductID: p.ID, Delta: -13})
		assert.ErrorIs(t, err, product.ErrTotalStockUnderflow)
		assert.Equal(t, 12, testkit.Product(t, store, p.ID).TotalStock)
	})

	t.Run("商品不存在", func(t *testing.T) {
		_, err := uc.Execute(ctx, AdjustStockRequest{ProductID: 99, Delta: 1})
		assert.ErrorIs(t, err, product.ErrProductNotFound)
	})

	t.Run("流水按时间倒序", func(t *testing.T) {
		ms, total, err := query.ByProduct(ctx, p.ID, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, ms, 2)
		assert.Equal(t, "STOCKTAKE-7", ms[0].Reference)
		assert.Equal(t, -3, ms[0].Quantity)
		assert.Equal(t, inventory.DefaultAdjustReference, ms[1].Reference)
		assert.Equal(t, inventory.MovementManualAdjust, ms[1].Type)
		assert.Equal(t, 15, ms[1].TotalAfter)
	})

	t.Run("查询不存在商品的流水", func(t *testing.T) {
		_, _, err := query.ByProduct(ctx, 99, 1, 20)
		assert.ErrorIs(t, err, product.ErrProductNotFound)
	})
}
