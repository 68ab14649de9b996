package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validPayment() *Payment {
	return &Payment{
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		PaymentMethod: string(MethodStripe),
		Status:        string(StatusPending),
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validPayment().Validate())
}

func TestValidateRejectsNonPositiveAmount(t *testing.T) {
	p := validPayment()
	p.Amount = decimal.Zero
	assert.Error(t, p.Validate())

	p.Amount = decimal.RequireFromString("-1.00")
	assert.Error(t, p.Validate())
}

func TestValidateRejectsRefundBeyondAmount(t *testing.T) {
	p := validPayment()
	p.RefundAmount = decimal.RequireFromString("100.01")
	assert.Error(t, p.Validate())

	p.RefundAmount = decimal.RequireFromString("-0.01")
	assert.Error(t, p.Validate())

	p.RefundAmount = decimal.RequireFromString("100.00")
	assert.NoError(t, p.Validate())
}

func TestValidateRejectsBadCurrency(t *testing.T) {
	p := validPayment()
	p.Currency = "US"
	assert.Error(t, p.Validate())

	p.Currency = "DOLLARS"
	assert.Error(t, p.Validate())
}

func TestValidateRejectsUnknownMethodAndStatus(t *testing.T) {
	p := validPayment()
	p.PaymentMethod = "bitcoin"
	assert.Error(t, p.Validate())

	p = validPayment()
	p.Status = "unknown"
	assert.Error(t, p.Validate())
}

func TestValidateAssociationMutualExclusion(t *testing.T) {
	serviceID := "svc-1"
	appointmentID := "apt-1"

	p := validPayment()
	p.ServiceID = &serviceID
	assert.NoError(t, p.Validate())

	p.AppointmentID = &appointmentID
	assert.Error(t, p.Validate())
}

func TestStatusHelpers(t *testing.T) {
	p := validPayment()
	assert.True(t, p.IsPending())
	assert.False(t, p.IsTerminal())

	p.Status = string(StatusProcessing)
	assert.False(t, p.IsTerminal())

	p.Status = string(StatusCompleted)
	assert.True(t, p.IsCompleted())
	assert.True(t, p.IsTerminal())

	p.Status = string(StatusRefunded)
	assert.True(t, p.IsRefunded())
	assert.True(t, p.IsTerminal())
}

func TestRemainingRefundable(t *testing.T) {
	p := validPayment()
	assert.True(t, p.RemainingRefundable().Equal(decimal.RequireFromString("100.00")))

	p.RefundAmount = decimal.RequireFromString("30.00")
	assert.True(t, p.RemainingRefundable().Equal(decimal.RequireFromString("70.00")))
}

func TestJSONValueAndScan(t *testing.T) {
	var j JSON
	v, err := j.Value()
	assert.NoError(t, err)
	assert.Nil(t, v)

	j = JSON(`{"a":1}`)
	v, err = j.Value()
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), v)

	var scanned JSON
	assert.NoError(t, scanned.Scan([]byte(`{"b":2}`)))
	assert.Equal(t, JSON(`{"b":2}`), scanned)

	assert.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)

	assert.Error(t, scanned.Scan(42))
}
