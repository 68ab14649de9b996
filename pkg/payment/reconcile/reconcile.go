// Package reconcile 支付状态对账引擎
//
// 将提供商（Stripe webhook、PayPal capture）的异步事件幂等地应用到本地支付记录上：
// 每次应用在单个事务内完成状态更新与审计行写入，事务内对支付行加锁，
// 保证同一笔支付的事件串行应用，审计序列与应用顺序一致。
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doula/app/models/payment"
	"doula/pkg/config"
	"doula/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 瞬时持久化错误的重试参数，业务拒绝类错误不重试
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 1 * time.Second
	MaxRetryDelay      = 10 * time.Second
)

// Engine 支付状态对账引擎
type Engine struct {
	db          *gorm.DB
	maxAttempts int
	retryDelay  time.Duration
}

// Event 提供商事件的逻辑形态
// Payload 原样保存进审计行，引擎只读取这里解出的窄视图字段
type Event struct {
	Provider       payment.Method  // stripe 或 paypal，决定关联键所在列
	CorrelationKey string          // 提供商侧标识：payment intent ID / order ID
	ClaimedStatus  payment.Status  // 事件宣称的新状态
	RefundAmount   decimal.Decimal // 退款事件携带的金额，零值表示全额
	Reason         string          // 审计 change_reason，如 stripe_webhook
	Payload        payment.JSON    // 提供商原始载荷
	ChangedBy      *string         // 操作者，webhook 驱动的变更为 nil
}

// Result 事件应用结果
type Result struct {
	Payment   *payment.Payment
	Applied   bool // 是否发生了状态变更
	Duplicate bool // 是否为重复投递
}

// NewEngine 创建对账引擎，重试参数取自配置
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:          db,
		maxAttempts: config.GetInt("payment.retry_times", DefaultMaxAttempts),
		retryDelay:  time.Duration(config.GetInt("payment.retry_delay", 1)) * time.Second,
	}
}

// NewEngineWithOptions 指定重试参数创建引擎，测试时使用
func NewEngineWithOptions(db *gorm.DB, maxAttempts int, retryDelay time.Duration) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{db: db, maxAttempts: maxAttempts, retryDelay: retryDelay}
}

// ApplyEvent 将一个提供商事件应用到恰好一条支付记录上
//
// 幂等性约定：
//   - 宣称状态与当前状态一致视为重复投递，写入 duplicate_event 审计行后按成功返回
//   - 不在允许表中的变迁写入拒绝审计行并返回 ErrInvalidTransition，状态不变
//   - 状态更新与审计写入同事务提交，不存在部分应用
func (e *Engine) ApplyEvent(ctx context.Context, ev Event) (*Result, error) {
	if ev.CorrelationKey == "" {
		return nil, ErrNotFound
	}
	if ev.Reason == "" {
		ev.Reason = "provider_event"
	}

	var result *Result
	err := e.withRetry(ctx, func() error {
		r, err := e.applyOnce(ctx, ev)
		result = r
		return err
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// applyOnce 单次事务内的事件应用
func (e *Engine) applyOnce(ctx context.Context, ev Event) (*Result, error) {
	var result Result
	// 业务拒绝需要提交审计行，因此在事务内用变量带出，事务正常提交
	var bizErr error

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := e.lockByCorrelationKey(tx, ev.Provider, ev.CorrelationKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 未知支付，不写任何行
				return ErrNotFound
			}
			return err
		}
		result.Payment = p
		current := payment.Status(p.Status)

		// 重复投递：提供商 webhook 为 at-least-once，重放按成功处理
		if current == ev.ClaimedStatus {
			result.Duplicate = true
			return tx.Create(&payment.Audit{
				PaymentID:    p.ID,
				OldStatus:    p.Status,
				NewStatus:    p.Status,
				ChangeReason: payment.ReasonDuplicateEvent,
				ProviderData: ev.Payload,
				ChangedBy:    ev.ChangedBy,
			}).Error
		}

		// 拒绝的变迁：状态不变，但事件要留下可观测的审计行
		if !CanTransition(current, ev.ClaimedStatus) {
			bizErr = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, ev.ClaimedStatus)
			return tx.Create(&payment.Audit{
				PaymentID:    p.ID,
				OldStatus:    p.Status,
				NewStatus:    p.Status,
				ChangeReason: fmt.Sprintf("invalid_transition:%s->%s", current, ev.ClaimedStatus),
				ProviderData: ev.Payload,
				ChangedBy:    ev.ChangedBy,
			}).Error
		}

		updates := map[string]interface{}{
			"status": string(ev.ClaimedStatus),
		}
		newStatus := ev.ClaimedStatus

		// 退款事件需要更新 refund_amount，并校验不超过总额
		if ev.ClaimedStatus == payment.StatusRefunded {
			refund := ev.RefundAmount
			if refund.IsZero() {
				refund = p.RemainingRefundable()
			}
			newTotal := p.RefundAmount.Add(refund)
			if newTotal.GreaterThan(p.Amount) {
				bizErr = fmt.Errorf("%w: refund %s exceeds remaining %s",
					ErrInvalidAmount, refund, p.RemainingRefundable())
				return nil
			}
			updates["refund_amount"] = newTotal
			// 部分退款保持 completed，refund_amount 增长
			if newTotal.LessThan(p.Amount) {
				newStatus = payment.StatusCompleted
				updates["status"] = string(newStatus)
			}
			p.RefundAmount = newTotal
		}

		// Model(p) 让 BeforeSave 校验在已加载的行上执行
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}

		reason := ev.Reason
		if ev.ClaimedStatus == payment.StatusRefunded && newStatus == payment.StatusCompleted {
			reason = payment.ReasonPartialRefund
		}
		if err := tx.Create(&payment.Audit{
			PaymentID:    p.ID,
			OldStatus:    string(current),
			NewStatus:    string(newStatus),
			ChangeReason: reason,
			ProviderData: ev.Payload,
			ChangedBy:    ev.ChangedBy,
		}).Error; err != nil {
			return err
		}

		p.Status = string(newStatus)
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if bizErr != nil {
		return &result, bizErr
	}
	return &result, nil
}

// Refund 退款操作，仅允许 completed 状态发起
// 全额退款置为 refunded；部分退款保持 completed 并累加 refund_amount
func (e *Engine) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, changedBy *string) (*Result, error) {
	var result *Result
	err := e.withRetry(ctx, func() error {
		r, err := e.refundOnce(ctx, paymentID, amount, changedBy)
		result = r
		return err
	})
	return result, err
}

func (e *Engine) refundOnce(ctx context.Context, paymentID string, amount decimal.Decimal, changedBy *string) (*Result, error) {
	var result Result

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := e.lockByID(tx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		result.Payment = p

		if !p.IsCompleted() {
			return fmt.Errorf("%w: current status is %s", ErrInvalidState, p.Status)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("%w: refund amount must be positive", ErrInvalidAmount)
		}
		newTotal := p.RefundAmount.Add(amount)
		if newTotal.GreaterThan(p.Amount) {
			return fmt.Errorf("%w: refund %s exceeds remaining %s",
				ErrInvalidAmount, amount, p.RemainingRefundable())
		}

		newStatus := payment.StatusCompleted
		reason := payment.ReasonPartialRefund
		if newTotal.Equal(p.Amount) {
			newStatus = payment.StatusRefunded
			reason = payment.ReasonRefund
		}

		p.RefundAmount = newTotal
		if err := tx.Model(p).Updates(map[string]interface{}{
			"status":        string(newStatus),
			"refund_amount": newTotal,
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(&payment.Audit{
			PaymentID:    p.ID,
			OldStatus:    string(payment.StatusCompleted),
			NewStatus:    string(newStatus),
			ChangeReason: reason,
			ChangedBy:    changedBy,
		}).Error; err != nil {
			return err
		}

		p.Status = string(newStatus)
		p.RefundAmount = newTotal
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// lockByCorrelationKey 事务内按提供商关联键锁定支付行
func (e *Engine) lockByCorrelationKey(tx *gorm.DB, provider payment.Method, key string) (*payment.Payment, error) {
	var p payment.Payment
	query := e.lockingClause(tx)
	switch provider {
	case payment.MethodPayPal:
		query = query.Where("paypal_order_id = ?", key)
	default:
		query = query.Where("stripe_payment_intent_id = ?", key)
	}
	if err := query.First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// lockByID 事务内按主键锁定支付行
func (e *Engine) lockByID(tx *gorm.DB, id string) (*payment.Payment, error) {
	var p payment.Payment
	if err := e.lockingClause(tx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// lockingClause 行级锁
// SQLite 不支持 FOR UPDATE，其写事务本身整库互斥，已满足串行要求
func (e *Engine) lockingClause(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// withRetry 指数退避重试，仅针对瞬时持久化错误
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	delay := e.retryDelay
	var err error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > MaxRetryDelay {
				delay = MaxRetryDelay
			}
		}

		err = fn()
		if err == nil || IsBusinessError(err) {
			return err
		}

		if logger.Logger != nil {
			logger.WarnString("Reconcile", "Retry",
				fmt.Sprintf("attempt %d/%d failed: %v", attempt, e.maxAttempts, err))
		}
	}
	return fmt.Errorf("persistence failure after %d attempts: %w", e.maxAttempts, err)
}
