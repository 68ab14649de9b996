package reconcile

import (
	"doula/app/models/payment"
)

// allowedTransitions 状态机允许的变迁表
// completed 之后仅保留 refunded/disputed 两个出口，其余终态不再变迁
var allowedTransitions = map[payment.Status][]payment.Status{
	payment.StatusPending: {
		payment.StatusProcessing,
		payment.StatusCompleted,
		payment.StatusFailed,
		payment.StatusCancelled,
	},
	payment.StatusProcessing: {
		payment.StatusCompleted,
		payment.StatusFailed,
		payment.StatusCancelled,
	},
	payment.StatusCompleted: {
		payment.StatusRefunded,
		payment.StatusDisputed,
	},
}

// CanTransition 检查 from -> to 是否为允许的状态变迁
func CanTransition(from, to payment.Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
