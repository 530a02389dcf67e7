package payment

import (
	"testing"
	"time"

	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	valid := &Payment{
		DocumentID:  "doc_1",
		Amount:      decimal.NewFromInt(300),
		PaymentDate: time.Now(),
		Method:      types.PaymentMethodBankTransfer,
	}
	assert.NoError(t, valid.Validate())

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		p := *valid
		p.Amount = amount
		err := p.Validate()
		assert.True(t, ierr.Is(err, ierr.ErrInvalidPaymentAmount), "amount %s", amount)
	}

	noMethod := *valid
	noMethod.Method = "barter"
	assert.True(t, ierr.IsValidation(noMethod.Validate()))
}

func TestTotalPaid(t *testing.T) {
	payments := []*Payment{
		{Amount: decimal.NewFromInt(300)},
		{Amount: decimal.NewFromInt(200)},
		{Amount: decimal.RequireFromString("0.25")},
	}
	assert.True(t, decimal.RequireFromString("500.25").Equal(TotalPaid(payments)))
	assert.True(t, TotalPaid(nil).IsZero())
}
