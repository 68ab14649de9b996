package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"doula/app/models/payment"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to payment.Status
	}{
		{payment.StatusPending, payment.StatusProcessing},
		{payment.StatusPending, payment.StatusCompleted},
		{payment.StatusPending, payment.StatusFailed},
		{payment.StatusPending, payment.StatusCancelled},
		{payment.StatusProcessing, payment.StatusCompleted},
		{payment.StatusProcessing, payment.StatusFailed},
		{payment.StatusProcessing, payment.StatusCancelled},
		{payment.StatusCompleted, payment.StatusRefunded},
		{payment.StatusCompleted, payment.StatusDisputed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s 应该允许", tc.from, tc.to)
	}

	rejected := []struct {
		from, to payment.Status
	}{
		{payment.StatusCompleted, payment.StatusPending},
		{payment.StatusCompleted, payment.StatusProcessing},
		{payment.StatusRefunded, payment.StatusCompleted},
		{payment.StatusFailed, payment.StatusCompleted},
		{payment.StatusCancelled, payment.StatusPending},
		{payment.StatusDisputed, payment.StatusCompleted},
		{payment.StatusDisputed, payment.StatusRefunded},
		{payment.StatusPending, payment.StatusRefunded},
		{payment.StatusPending, payment.StatusDisputed},
	}
	for _, tc := range rejected {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s 应该拒绝", tc.from, tc.to)
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminals := []payment.Status{
		payment.StatusFailed,
		payment.StatusCancelled,
		payment.StatusRefunded,
		payment.StatusDisputed,
	}
	all := []payment.Status{
		payment.StatusPending,
		payment.StatusProcessing,
		payment.StatusCompleted,
		payment.StatusFailed,
		payment.StatusCancelled,
		payment.StatusRefunded,
		payment.StatusDisputed,
	}

	for _, from := range terminals {
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "终态 %s 不应允许到 %s", from, to)
		}
	}
}
