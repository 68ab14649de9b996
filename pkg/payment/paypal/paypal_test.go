package paypal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"doula/app/models/payment"
	"doula/pkg/payment/types"
)

func TestMapEventStatus(t *testing.T) {
	cases := map[string]payment.Status{
		"CHECKOUT.ORDER.APPROVED":   payment.StatusProcessing,
		"PAYMENT.CAPTURE.COMPLETED": payment.StatusCompleted,
		"PAYMENT.CAPTURE.DENIED":    payment.StatusFailed,
		"PAYMENT.CAPTURE.REFUNDED":  payment.StatusRefunded,
		"CUSTOMER.DISPUTE.CREATED":  payment.StatusDisputed,
	}
	for eventType, expected := range cases {
		status, ok := MapEventStatus(eventType)
		assert.True(t, ok, eventType)
		assert.Equal(t, expected, status)
	}

	_, ok := MapEventStatus("BILLING.SUBSCRIPTION.CREATED")
	assert.False(t, ok)
}

func TestCorrelationKeyFromResource(t *testing.T) {
	// capture 类事件的订单号在 supplementary_data 里
	key := correlationKeyFromResource(map[string]interface{}{
		"id": "capture-1",
		"supplementary_data": map[string]interface{}{
			"related_ids": map[string]interface{}{
				"order_id": "ORDER-9",
			},
		},
	})
	assert.Equal(t, "ORDER-9", key)

	// 订单类事件直接用资源 ID
	key = correlationKeyFromResource(map[string]interface{}{
		"id": "ORDER-10",
	})
	assert.Equal(t, "ORDER-10", key)

	assert.Empty(t, correlationKeyFromResource(nil))
}

func TestRefundAmountFromResource(t *testing.T) {
	amount := refundAmountFromResource(map[string]interface{}{
		"amount": map[string]interface{}{
			"value":         "25.50",
			"currency_code": "USD",
		},
	})
	assert.True(t, amount.Equal(decimal.RequireFromString("25.50")))

	// 缺失金额按零值处理，对账时视为全额
	assert.True(t, refundAmountFromResource(map[string]interface{}{}).IsZero())
	assert.True(t, refundAmountFromResource(nil).IsZero())

	// 非法金额同样回退到零值
	assert.True(t, refundAmountFromResource(map[string]interface{}{
		"amount": map[string]interface{}{"value": "abc"},
	}).IsZero())
}

func TestVerifyWebhookMapsEvent(t *testing.T) {
	svc := &PayPalService{}

	payload := []byte(`{
		"id": "WH-1",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "capture-1",
			"supplementary_data": {
				"related_ids": {"order_id": "ORDER-7"}
			}
		}
	}`)

	event, err := svc.VerifyWebhook(payload, "")
	assert.NoError(t, err)
	assert.Equal(t, "WH-1", event.EventID)
	assert.Equal(t, "ORDER-7", event.CorrelationKey)
	assert.Equal(t, payment.StatusCompleted, event.ClaimedStatus)
}

func TestVerifyWebhookIgnoresUnmappedEvent(t *testing.T) {
	svc := &PayPalService{}

	payload := []byte(`{"id": "WH-2", "event_type": "BILLING.PLAN.CREATED", "resource": {"id": "P-1"}}`)
	_, err := svc.VerifyWebhook(payload, "")
	assert.ErrorIs(t, err, types.ErrEventIgnored)
}

func TestVerifyWebhookRejectsBadPayload(t *testing.T) {
	svc := &PayPalService{}

	_, err := svc.VerifyWebhook([]byte("not json"), "")
	assert.Error(t, err)

	_, err = svc.VerifyWebhook([]byte(`{"id":"x"}`), "")
	assert.Error(t, err)
}
