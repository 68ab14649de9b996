package stripe

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"doula/app/models/payment"
)

func TestMapEventStatus(t *testing.T) {
	cases := map[string]payment.Status{
		"payment_intent.processing":    payment.StatusProcessing,
		"payment_intent.succeeded":     payment.StatusCompleted,
		"payment_intent.payment_failed": payment.StatusFailed,
		"payment_intent.canceled":      payment.StatusCancelled,
		"charge.refunded":              payment.StatusRefunded,
		"charge.dispute.created":       payment.StatusDisputed,
	}
	for eventType, expected := range cases {
		status, ok := MapEventStatus(eventType)
		assert.True(t, ok, eventType)
		assert.Equal(t, expected, status)
	}

	// 未映射的事件类型直接忽略
	_, ok := MapEventStatus("customer.created")
	assert.False(t, ok)
	_, ok = MapEventStatus("payment_intent.created")
	assert.False(t, ok)
}

func TestCorrelationKeyFromEvent(t *testing.T) {
	// payment_intent.* 事件对象本身就是 intent
	key := correlationKeyFromEvent("payment_intent.succeeded", map[string]interface{}{
		"id": "pi_123",
	})
	assert.Equal(t, "pi_123", key)

	// charge.* 事件引用 payment_intent 字段
	key = correlationKeyFromEvent("charge.refunded", map[string]interface{}{
		"id":             "ch_456",
		"payment_intent": "pi_789",
	})
	assert.Equal(t, "pi_789", key)

	// charge 事件缺少 intent 引用时无法关联
	key = correlationKeyFromEvent("charge.refunded", map[string]interface{}{
		"id": "ch_456",
	})
	assert.Empty(t, key)

	assert.Empty(t, correlationKeyFromEvent("payment_intent.succeeded", nil))
}

func TestRefundAmountFromEvent(t *testing.T) {
	// refunds.data 第一条是本次退款，美分换算为十进制金额
	amount := refundAmountFromEvent(map[string]interface{}{
		"amount_refunded": float64(3000),
		"refunds": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"amount": float64(3000)},
			},
		},
	})
	assert.True(t, amount.Equal(decimal.RequireFromString("30")))

	// 第二次部分退款：amount_refunded 是累计值，退款条目才是本次金额
	amount = refundAmountFromEvent(map[string]interface{}{
		"amount_refunded": float64(10000),
		"refunds": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"amount": float64(7000)},
				map[string]interface{}{"amount": float64(3000)},
			},
		},
	})
	assert.True(t, amount.Equal(decimal.RequireFromString("70")))

	// 退款列表缺失时回退到累计值
	amount = refundAmountFromEvent(map[string]interface{}{
		"amount_refunded": float64(2550),
	})
	assert.True(t, amount.Equal(decimal.RequireFromString("25.50")))

	// 金额缺失按零值处理，对账时视为全额
	assert.True(t, refundAmountFromEvent(map[string]interface{}{}).IsZero())
	assert.True(t, refundAmountFromEvent(nil).IsZero())
}
