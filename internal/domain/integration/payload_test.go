package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RestoresOperation(t *testing.T) {
	intent, err := NewIntent(2, NewOrderPayload(OpShipOrder, 9, "EXT-9", "SHIPPED"))
	require.NoError(t, err)
	assert.Equal(t, OpShipOrder, intent.Operation)
	assert.Equal(t, IntentPending, intent.Status)
	assert.NotEmpty(t, intent.ID)
	assert.JSONEq(t, `{"orderId":9,"externalOrderId":"EXT-9","status":"SHIPPED"}`, string(intent.Payload))

	p, err := Decode(intent.Operation, intent.Payload)
	require.NoError(t, err)
	assert.Equal(t, NewOrderPayload(OpShipOrder, 9, "EXT-9", "SHIPPED"), p)
}

func TestEncode_UnknownOperation(t *testing.T) {
	_, _, err := Encode(OrderPayload{Op: Operation("REFUND_ORDER")})
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = Decode(Operation("REFUND_ORDER"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = Decode(OpListProduct, []byte(`not json`))
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, Backoff(10*time.Second, 1))
	assert.Equal(t, 40*time.Second, Backoff(10*time.Second, 3))
	assert.Equal(t, time.Hour, Backoff(10*time.Second, 20))
	assert.Equal(t, time.Second, Backoff(0, 1))
}
