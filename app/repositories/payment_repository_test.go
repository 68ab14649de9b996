package repositories

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"doula/app/models/payment"
)

func setupRepo(t *testing.T) *PaymentRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&payment.Payment{}, &payment.Audit{}))

	return NewPaymentRepositoryWithDB(db)
}

func TestPaymentRepositoryCreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	intentID := "pi_test_1"
	p := &payment.Payment{
		Amount:                decimal.RequireFromString("59.99"),
		Currency:              "USD",
		PaymentMethod:         string(payment.MethodStripe),
		Status:                string(payment.StatusPending),
		StripePaymentIntentID: &intentID,
	}
	require.NoError(t, repo.Create(ctx, p))
	assert.NotEmpty(t, p.ID) // BeforeCreate 钩子生成主键

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(p.Amount))

	got, err = repo.GetByStripeIntentID(ctx, intentID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = repo.GetByStripeIntentID(ctx, "pi_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPaymentProviderKeyColumns(t *testing.T) {
	// 关联键查询直接写列名，迁移出的列必须与查询一致
	repo := setupRepo(t)

	assert.True(t, repo.db.Migrator().HasColumn(&payment.Payment{}, "stripe_payment_intent_id"))
	assert.True(t, repo.db.Migrator().HasColumn(&payment.Payment{}, "paypal_order_id"))
}

func TestPaymentRepositoryGetByPayPalOrderID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	orderID := "ORDER-42"
	p := &payment.Payment{
		Amount:        decimal.RequireFromString("10.00"),
		Currency:      "USD",
		PaymentMethod: string(payment.MethodPayPal),
		Status:        string(payment.StatusPending),
		PayPalOrderID: &orderID,
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByPayPalOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestPaymentRepositoryList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		p := &payment.Payment{
			Amount:        decimal.RequireFromString("20.00"),
			Currency:      "USD",
			PaymentMethod: string(payment.MethodCash),
			Status:        string(payment.StatusPending),
		}
		require.NoError(t, repo.Create(ctx, p))
	}

	items, total, err := repo.List(ctx, 0, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, items, 3)

	items, _, err = repo.List(ctx, 3, 3)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestPaymentRepositoryListAuditsOrdered(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := &payment.Payment{
		Amount:        decimal.RequireFromString("20.00"),
		Currency:      "USD",
		PaymentMethod: string(payment.MethodStripe),
		Status:        string(payment.StatusPending),
	}
	require.NoError(t, repo.Create(ctx, p))

	transitions := [][2]string{
		{"pending", "processing"},
		{"processing", "completed"},
		{"completed", "refunded"},
	}
	for _, tr := range transitions {
		require.NoError(t, repo.db.Create(&payment.Audit{
			PaymentID:    p.ID,
			OldStatus:    tr[0],
			NewStatus:    tr[1],
			ChangeReason: "provider_event",
		}).Error)
	}

	audits, err := repo.ListAudits(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, audits, 3)

	// 按写入顺序返回
	assert.Equal(t, "processing", audits[0].NewStatus)
	assert.Equal(t, "completed", audits[1].NewStatus)
	assert.Equal(t, "refunded", audits[2].NewStatus)
}
