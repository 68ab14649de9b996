package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"doula/app/models/payment"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&payment.Payment{}, &payment.Audit{}))
	return db
}

func newTestEngine(db *gorm.DB) *Engine {
	return NewEngineWithOptions(db, 1, time.Millisecond)
}

func createTestPayment(t *testing.T, db *gorm.DB, status string, amount string) *payment.Payment {
	t.Helper()

	intentID := "pi_" + status + "_" + amount
	amt, err := decimal.NewFromString(amount)
	require.NoError(t, err)

	p := &payment.Payment{
		Amount:                amt,
		Currency:              "USD",
		PaymentMethod:         string(payment.MethodStripe),
		Status:                status,
		StripePaymentIntentID: &intentID,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func latestAudit(t *testing.T, db *gorm.DB, paymentID string) *payment.Audit {
	t.Helper()

	var a payment.Audit
	err := db.Where("payment_id = ?", paymentID).Order("id DESC").First(&a).Error
	require.NoError(t, err)
	return &a
}

func auditCount(t *testing.T, db *gorm.DB, paymentID string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&payment.Audit{}).Where("payment_id = ?", paymentID).Count(&n).Error)
	return n
}

func TestApplyEventCompletesPayment(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusPending), "100.00")

	result, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusCompleted,
		Reason:         payment.ReasonStripeWebhook,
		Payload:        payment.JSON(`{"id":"evt_1"}`),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.False(t, result.Duplicate)
	assert.Equal(t, string(payment.StatusCompleted), result.Payment.Status)

	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusCompleted), stored.Status)

	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, string(payment.StatusPending), audit.OldStatus)
	assert.Equal(t, string(payment.StatusCompleted), audit.NewStatus)
	assert.Equal(t, payment.ReasonStripeWebhook, audit.ChangeReason)
	assert.Equal(t, payment.JSON(`{"id":"evt_1"}`), audit.ProviderData)
}

func TestApplyEventDuplicateDelivery(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "50.00")

	// 重放已应用的状态，必须按成功处理且不改变状态
	result, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusCompleted,
		Reason:         payment.ReasonStripeWebhook,
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.Duplicate)

	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, payment.ReasonDuplicateEvent, audit.ChangeReason)
	assert.Equal(t, audit.OldStatus, audit.NewStatus)

	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusCompleted), stored.Status)
}

func TestApplyEventInvalidTransition(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "50.00")

	// completed 不允许回到 pending
	_, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusPending,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// 状态不变，但拒绝事件要留下审计行
	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusCompleted), stored.Status)

	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, "invalid_transition:completed->pending", audit.ChangeReason)
	assert.Equal(t, string(payment.StatusCompleted), audit.OldStatus)
	assert.Equal(t, string(payment.StatusCompleted), audit.NewStatus)
}

func TestApplyEventUnknownCorrelationKey(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)

	_, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: "pi_unknown",
		ClaimedStatus:  payment.StatusCompleted,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// 未知事件不写任何行
	var n int64
	require.NoError(t, db.Model(&payment.Audit{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestApplyEventEmptyCorrelationKey(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)

	_, err := engine.ApplyEvent(context.Background(), Event{
		Provider:      payment.MethodStripe,
		ClaimedStatus: payment.StatusCompleted,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyEventFullRefundByWebhook(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "80.00")

	// 退款事件金额缺失时按剩余可退全额处理
	result, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusRefunded,
		Reason:         payment.ReasonStripeWebhook,
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusRefunded), stored.Status)
	assert.True(t, stored.RefundAmount.Equal(decimal.RequireFromString("80.00")))
}

func TestApplyEventPartialRefundByWebhook(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "80.00")

	result, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusRefunded,
		RefundAmount:   decimal.RequireFromString("30.00"),
		Reason:         payment.ReasonStripeWebhook,
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	// 部分退款保持 completed
	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusCompleted), stored.Status)
	assert.True(t, stored.RefundAmount.Equal(decimal.RequireFromString("30.00")))

	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, payment.ReasonPartialRefund, audit.ChangeReason)
}

func TestApplyEventRefundOverflow(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "80.00")

	_, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusRefunded,
		RefundAmount:   decimal.RequireFromString("100.00"),
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// 金额越界不产生任何变更，也不写审计行
	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusCompleted), stored.Status)
	assert.True(t, stored.RefundAmount.IsZero())
	assert.Zero(t, auditCount(t, db, p.ID))
}

func TestApplyEventByPayPalOrderID(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)

	orderID := "ORDER-123"
	p := &payment.Payment{
		Amount:        decimal.RequireFromString("25.00"),
		Currency:      "USD",
		PaymentMethod: string(payment.MethodPayPal),
		Status:        string(payment.StatusPending),
		PayPalOrderID: &orderID,
	}
	require.NoError(t, db.Create(p).Error)

	result, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodPayPal,
		CorrelationKey: orderID,
		ClaimedStatus:  payment.StatusProcessing,
		Reason:         payment.ReasonPayPalWebhook,
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, string(payment.StatusProcessing), result.Payment.Status)
}

func TestApplyEventSequenceMatchesAuditTrail(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusPending), "60.00")

	steps := []payment.Status{
		payment.StatusProcessing,
		payment.StatusCompleted,
		payment.StatusRefunded,
	}
	for _, s := range steps {
		_, err := engine.ApplyEvent(context.Background(), Event{
			Provider:       payment.MethodStripe,
			CorrelationKey: *p.StripePaymentIntentID,
			ClaimedStatus:  s,
		})
		require.NoError(t, err)
	}

	// 最新审计行的 new_status 必须等于当前状态
	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, stored.Status, audit.NewStatus)
	assert.Equal(t, string(payment.StatusRefunded), stored.Status)
	assert.EqualValues(t, 3, auditCount(t, db, p.ID))
}

func TestRefundFullAmount(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "100.00")

	operator := "admin@example.com"
	result, err := engine.Refund(context.Background(), p.ID, decimal.RequireFromString("100.00"), &operator)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, string(payment.StatusRefunded), result.Payment.Status)

	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, payment.ReasonRefund, audit.ChangeReason)
	require.NotNil(t, audit.ChangedBy)
	assert.Equal(t, operator, *audit.ChangedBy)
}

func TestRefundPartialAmount(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "100.00")

	result, err := engine.Refund(context.Background(), p.ID, decimal.RequireFromString("40.00"), nil)
	require.NoError(t, err)
	assert.Equal(t, string(payment.StatusCompleted), result.Payment.Status)
	assert.True(t, result.Payment.RefundAmount.Equal(decimal.RequireFromString("40.00")))

	audit := latestAudit(t, db, p.ID)
	assert.Equal(t, payment.ReasonPartialRefund, audit.ChangeReason)

	// 第二次部分退款累加到全额
	result, err = engine.Refund(context.Background(), p.ID, decimal.RequireFromString("60.00"), nil)
	require.NoError(t, err)
	assert.Equal(t, string(payment.StatusRefunded), result.Payment.Status)
	assert.True(t, result.Payment.RefundAmount.Equal(decimal.RequireFromString("100.00")))
}

func TestRefundRejectsNonCompleted(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusPending), "100.00")

	_, err := engine.Refund(context.Background(), p.ID, decimal.RequireFromString("10.00"), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "100.00")

	_, err := engine.Refund(context.Background(), p.ID, decimal.RequireFromString("100.01"), nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = engine.Refund(context.Background(), p.ID, decimal.Zero, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRefundUnknownPayment(t *testing.T) {
	db := setupTestDB(t)
	engine := newTestEngine(db)

	_, err := engine.Refund(context.Background(), "missing", decimal.RequireFromString("10.00"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyEventConcurrentDeliveries(t *testing.T) {
	// 共享缓存加单连接，多个 goroutine 串行访问同一张表
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&payment.Payment{}, &payment.Audit{}))

	engine := newTestEngine(db)
	p := createTestPayment(t, db, string(payment.StatusPending), "100.00")

	const deliveries = 8
	var wg sync.WaitGroup
	errs := make([]error, deliveries)
	results := make([]*Result, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.ApplyEvent(context.Background(), Event{
				Provider:       payment.MethodStripe,
				CorrelationKey: *p.StripePaymentIntentID,
				ClaimedStatus:  payment.StatusCompleted,
				Reason:         payment.ReasonStripeWebhook,
			})
		}(i)
	}
	wg.Wait()

	// 恰好一次真实变迁，其余投递都按重复处理
	applied := 0
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		if results[i].Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusCompleted), stored.Status)

	var transitions int64
	require.NoError(t, db.Model(&payment.Audit{}).
		Where("payment_id = ? AND change_reason = ?", p.ID, payment.ReasonStripeWebhook).
		Count(&transitions).Error)
	assert.EqualValues(t, 1, transitions)
	assert.EqualValues(t, deliveries, auditCount(t, db, p.ID))
}

func TestApplyEventRetriesTransientFailures(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngineWithOptions(db, 3, time.Millisecond)
	p := createTestPayment(t, db, string(payment.StatusPending), "50.00")

	// 删除审计表制造持久化故障，事务回滚且重试耗尽后才报错
	require.NoError(t, db.Migrator().DropTable(&payment.Audit{}))

	_, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusCompleted,
	})
	require.Error(t, err)
	assert.False(t, IsBusinessError(err))
	assert.Contains(t, err.Error(), "after 3 attempts")

	// 每次尝试都整体回滚，状态保持不变
	var stored payment.Payment
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, string(payment.StatusPending), stored.Status)
}

func TestApplyEventBusinessRejectionNotRetried(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngineWithOptions(db, 3, time.Millisecond)
	p := createTestPayment(t, db, string(payment.StatusCompleted), "50.00")

	_, err := engine.ApplyEvent(context.Background(), Event{
		Provider:       payment.MethodStripe,
		CorrelationKey: *p.StripePaymentIntentID,
		ClaimedStatus:  payment.StatusPending,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// 拒绝只写一条审计行，说明没有进入重试
	assert.EqualValues(t, 1, auditCount(t, db, p.ID))
}
