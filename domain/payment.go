package domain

import "time"

// PaymentStep is a stage of the checkout flow.
type PaymentStep string

const (
	StepConfirm    PaymentStep = "confirm"
	StepMethod     PaymentStep = "method"
	StepProcessing PaymentStep = "processing"
	StepSuccess    PaymentStep = "success"
	StepCancelled  PaymentStep = "cancelled"
	StepRefunded   PaymentStep = "refunded"
)

type PaymentMethod string

const (
	MethodWallet PaymentMethod = "wallet"
	MethodAlipay PaymentMethod = "alipay"
	MethodCard   PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodWallet, MethodAlipay, MethodCard:
		return true
	}
	return false
}

// PaymentFlow drives confirm -> method -> processing -> success. A flow whose
// listing can no longer be granted ends refunded instead. Either way it is
// settled exactly once.
type PaymentFlow struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ListingID   string        `json:"listing_id"`
	Title       string        `json:"title"`
	Amount      float64       `json:"amount"`
	Step        PaymentStep   `json:"step"`
	Method      PaymentMethod `json:"method"`
	Charged     bool          `json:"charged"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// NewPaymentFlow opens a flow at the confirm step; wallet is preselected.
func NewPaymentFlow(id, userID string, listing *Listing, now time.Time) *PaymentFlow {
	return &PaymentFlow{
		ID:        id,
		UserID:    userID,
		ListingID: listing.ID,
		Title:     listing.Title,
		Amount:    listing.Price,
		Step:      StepConfirm,
		Method:    MethodWallet,
		CreatedAt: now,
	}
}

func (f *PaymentFlow) Confirm() error {
	if f.Step != StepConfirm {
		return ErrInvalidTransition
	}
	f.Step = StepMethod
	return nil
}

func (f *PaymentFlow) ChooseMethod(m PaymentMethod) error {
	if f.Step != StepMethod {
		return ErrInvalidTransition
	}
	if !m.Valid() {
		return NewError(ErrCodeInvalid, "unknown payment method")
	}
	f.Method = m
	return nil
}

func (f *PaymentFlow) BeginProcessing() error {
	if f.Step != StepMethod {
		return ErrInvalidTransition
	}
	f.Step = StepProcessing
	return nil
}

// Succeed settles the flow. Only the first call from processing returns true.
func (f *PaymentFlow) Succeed(now time.Time) bool {
	if f.Step != StepProcessing {
		return false
	}
	f.Step = StepSuccess
	f.CompletedAt = &now
	return true
}

// Refund closes a processing flow that could not be granted. Like Succeed it
// only reports true once.
func (f *PaymentFlow) Refund(now time.Time) bool {
	if f.Step != StepProcessing {
		return false
	}
	f.Step = StepRefunded
	f.CompletedAt = &now
	return true
}

func (f *PaymentFlow) Cancel() error {
	switch f.Step {
	case StepConfirm, StepMethod:
		f.Step = StepCancelled
		return nil
	default:
		return ErrInvalidTransition
	}
}

func (f *PaymentFlow) Clone() *PaymentFlow {
	if f == nil {
		return nil
	}
	out := *f
	if f.CompletedAt != nil {
		at := *f.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}
