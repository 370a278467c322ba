package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlow() *PaymentFlow {
	return NewPaymentFlow("f1", "u_123", &Listing{ID: "L2", Title: "CodeWhiz", Price: 68}, time.Now())
}

func TestPaymentFlow_HappyPath(t *testing.T) {
	f := newTestFlow()
	assert.Equal(t, StepConfirm, f.Step)
	assert.Equal(t, MethodWallet, f.Method)
	assert.Equal(t, 68.0, f.Amount)

	require.NoError(t, f.Confirm())
	require.NoError(t, f.ChooseMethod(MethodCard))
	require.NoError(t, f.BeginProcessing())

	assert.True(t, f.Succeed(time.Now()))
	assert.Equal(t, StepSuccess, f.Step)
	assert.NotNil(t, f.CompletedAt)
	assert.False(t, f.Succeed(time.Now()), "settles once")
}

func TestPaymentFlow_RejectsOutOfOrderSteps(t *testing.T) {
	f := newTestFlow()
	assert.ErrorIs(t, f.BeginProcessing(), ErrInvalidTransition)
	assert.ErrorIs(t, f.ChooseMethod(MethodCard), ErrInvalidTransition)
	assert.False(t, f.Succeed(time.Now()))

	require.NoError(t, f.Confirm())
	assert.ErrorIs(t, f.Confirm(), ErrInvalidTransition)
	assert.True(t, IsDomainError(f.ChooseMethod("bitcoin"), ErrCodeInvalid))

	require.NoError(t, f.BeginProcessing())
	assert.ErrorIs(t, f.BeginProcessing(), ErrInvalidTransition, "double pay")
	assert.ErrorIs(t, f.Cancel(), ErrInvalidTransition)
}

func TestPaymentFlow_Cancel(t *testing.T) {
	f := newTestFlow()
	require.NoError(t, f.Cancel())
	assert.Equal(t, StepCancelled, f.Step)
	assert.ErrorIs(t, f.Confirm(), ErrInvalidTransition)
}

func TestPaymentFlow_RefundClosesProcessing(t *testing.T) {
	f := newTestFlow()
	assert.False(t, f.Refund(time.Now()))

	require.NoError(t, f.Confirm())
	require.NoError(t, f.BeginProcessing())
	assert.True(t, f.Refund(time.Now()))
	assert.Equal(t, StepRefunded, f.Step)
	assert.NotNil(t, f.CompletedAt)

	assert.False(t, f.Refund(time.Now()))
	assert.False(t, f.Succeed(time.Now()), "a refunded flow never succeeds")
}

func TestRuntimeGate(t *testing.T) {
	owned := NewRuntimeGate("L", true, false, 0)
	assert.False(t, owned.Blocked)
	assert.False(t, owned.Trial)

	granted := NewRuntimeGate("L", false, true, 0)
	assert.False(t, granted.Blocked)
	assert.True(t, granted.Trial)

	exhausted := NewRuntimeGate("L", false, false, -2)
	assert.True(t, exhausted.Blocked)
	assert.Equal(t, 0, exhausted.Remaining)
}
