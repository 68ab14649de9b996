package repositories

import (
	"context"

	"doula/app/models/payment"
	"doula/pkg/database"

	"gorm.io/gorm"
)

// PaymentRepository 支付记录仓库
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建仓库实例
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		db: database.DB,
	}
}

// NewPaymentRepositoryWithDB 使用指定数据库连接创建仓库实例，测试时使用
func NewPaymentRepositoryWithDB(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create 创建支付记录
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update 更新支付记录
func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// GetByID 根据主键获取支付记录
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByStripeIntentID 根据 Stripe payment intent ID 获取支付记录
func (r *PaymentRepository) GetByStripeIntentID(ctx context.Context, intentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", intentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByPayPalOrderID 根据 PayPal order ID 获取支付记录
func (r *PaymentRepository) GetByPayPalOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("paypal_order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List 分页获取支付记录
func (r *PaymentRepository) List(ctx context.Context, skip, limit int) ([]payment.Payment, int64, error) {
	var payments []payment.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&payment.Payment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&payments).Error

	return payments, total, err
}

// ListAudits 按创建顺序获取一条支付记录的全部审计行
func (r *PaymentRepository) ListAudits(ctx context.Context, paymentID string) ([]payment.Audit, error) {
	var audits []payment.Audit
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id ASC").
		Find(&audits).Error
	return audits, err
}
