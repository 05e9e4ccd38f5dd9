package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/xiebiao/omnichannel/pkg/errors"
)

var errState = apperrors.NewWithReason(apperrors.ErrCodeInvalidState, "INVALID_ORDER_STATE", "订单状态不允许此操作")

func TestProcess_IsolatesFailures(t *testing.T) {
	var seen []uint
	res := Process(context.Background(), []uint{1, 2, 3, 4}, func(ctx context.Context, id uint) error {
		seen = append(seen, id)
		if id == 3 {
			return errState.WithDetail("SHIPPED -> CONFIRMED")
		}
		return nil
	})

	assert.Equal(t, []uint{1, 2, 3, 4}, seen, "应顺序处理每个id且只处理一次")
	assert.Equal(t, []uint{1, 2, 4}, res.Succeeded)
	assert.Equal(t, []Failure[uint]{{ID: 3, Reason: "INVALID_ORDER_STATE:SHIPPED -> CONFIRMED"}}, res.Failed)
}

func TestProcess_UnknownErrorsAndPanics(t *testing.T) {
	res := Process(context.Background(), []string{"a", "b"}, func(ctx context.Context, id string) error {
		if id == "a" {
			return errors.New("boom")
		}
		panic("unexpected")
	})

	assert.Empty(t, res.Succeeded)
	assert.Len(t, res.Failed, 2)
	for _, f := range res.Failed {
		assert.Equal(t, apperrors.ReasonUnknown, f.Reason)
	}
}

func TestProcess_EmptyAndObserver(t *testing.T) {
	res := Process(context.Background(), nil, func(ctx context.Context, id int) error { return nil })
	assert.NotNil(t, res.Succeeded)
	assert.NotNil(t, res.Failed)

	calls := 0
	Process(context.Background(), []int{1, 2}, func(ctx context.Context, id int) error { return nil },
		func(id int, err error) { calls++ })
	assert.Equal(t, 2, calls)
}
