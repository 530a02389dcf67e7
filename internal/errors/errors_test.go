package errors

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "no active sequence",
			err:    NewError("nothing to allocate from").Mark(ErrNoActiveSequence),
			status: http.StatusNotFound,
			code:   ErrCodeNoActiveSequence,
		},
		{
			name:   "exhausted",
			err:    NewError("range used up").Mark(ErrSequenceExhausted),
			status: http.StatusConflict,
			code:   ErrCodeSequenceExhausted,
		},
		{
			name:   "outstanding balance",
			err:    NewError("balance due").Mark(ErrOutstandingBalance),
			status: http.StatusUnprocessableEntity,
			code:   ErrCodeOutstandingBalance,
		},
		{
			name:   "domain mark wins over validation",
			err:    WithError(NewError("bad amount").Mark(ErrValidation)).Mark(ErrInvalidPaymentAmount),
			status: http.StatusBadRequest,
			code:   ErrCodeInvalidPaymentAmount,
		},
		{
			name:   "wrapped transition error",
			err:    errors.Wrap(NewError("paid is terminal").Mark(ErrInvalidStatusTransition), "update"),
			status: http.StatusUnprocessableEntity,
			code:   ErrCodeInvalidStatusTransition,
		},
		{
			name:   "unmarked",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   ErrCodeSystemError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatusFromErr(tt.err))
			assert.Equal(t, tt.code, CodeFromErr(tt.err))
		})
	}
}

func TestSentinelsDoNotMatchEachOther(t *testing.T) {
	err := NewError("x").Mark(ErrSequenceExhausted)
	assert.True(t, IsSequenceExhausted(err))
	assert.False(t, IsNoActiveSequence(err))
	assert.False(t, IsConcurrentAllocationConflict(err))
	assert.False(t, IsValidation(err))
}
