package reconcile

import "errors"

// 业务拒绝类错误，对单个事件而言是终结性的，不会重试
var (
	// ErrNotFound 关联键未匹配到任何支付记录，事件丢弃
	ErrNotFound = errors.New("reconcile: payment not found for correlation key")

	// ErrInvalidTransition 请求的状态变迁不在允许表中
	ErrInvalidTransition = errors.New("reconcile: invalid status transition")

	// ErrInvalidAmount 退款金额超出剩余可退余额
	ErrInvalidAmount = errors.New("reconcile: refund amount exceeds remaining balance")

	// ErrInvalidState 当前状态不允许退款操作
	ErrInvalidState = errors.New("reconcile: refund only allowed from completed status")
)

// IsBusinessError 判断是否为业务拒绝类错误
// 这类错误不会触发持久化重试，重放得到相同结果
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidState)
}
