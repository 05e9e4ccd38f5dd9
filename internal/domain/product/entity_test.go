package product

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

func TestProduct_CheckReserve(t *testing.T) {
	t.Run("REJECT", func(t *testing.T) {
		p := &Product{SKU: "BK-1", TotalStock: 5, ReservedStock: 3, OversellPolicy: OversellReject}

		assert.NoError(t, p.CheckReserve(2))
		err := p.CheckReserve(3)
		assert.ErrorIs(t, err, ErrOutOfStock)
		assert.Equal(t, "OUT_OF_STOCK:sku=BK-1,available=2,requested=3", apperrors.ReasonOf(err))
	})

	t.Run("LIMITED", func(t *testing.T) {
		p := &Product{SKU: "BK-2", TotalStock: 1, OversellPolicy: OversellLimited, OversellLimit: 2}

		assert.NoError(t, p.CheckReserve(3), "可用库存降到-2仍在限额内")
		err := p.CheckReserve(4)
		assert.ErrorIs(t, err, ErrOversaleLimitExceeded)
		assert.Equal(t, "OVERSALE_LIMIT_EXCEEDED:sku=BK-2,available=1,requested=4,limit=2", apperrors.ReasonOf(err))
	})

	t.Run("UNRESTRICTED", func(t *testing.T) {
		p := &Product{SKU: "BK-3", TotalStock: 0, ReservedStock: 10, OversellPolicy: OversellUnrestricted}
		assert.NoError(t, p.CheckReserve(100))
		assert.Equal(t, -10, p.Available())
	})
}

func TestOversellPolicy_Valid(t *testing.T) {
	assert.True(t, OversellReject.Valid())
	assert.True(t, OversellLimited.Valid())
	assert.True(t, OversellUnrestricted.Valid())
	assert.False(t, OversellPolicy("ALLOW").Valid())
}

func TestEnsureListable(t *testing.T) {
	p := &Product{MetaTitle: "t"}
	assert.Equal(t, []string{FieldDescription, FieldMetaDescription, FieldImages}, p.MissingContent())

	err := EnsureListable(p)
	assert.ErrorIs(t, err, ErrContentIncomplete)
	assert.Equal(t, "PRODUCT_CONTENT_INCOMPLETE:description,metaDescription,images", apperrors.ReasonOf(err))

	p.Description, p.MetaDescription, p.Images = "d", "m", []string{"a.jpg"}
	assert.NoError(t, EnsureListable(p))
}
