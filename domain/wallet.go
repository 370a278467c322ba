package domain

import (
	"math"
	"time"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionPurchase   TransactionType = "PURCHASE"
	TransactionIncome     TransactionType = "INCOME"
	TransactionRefund     TransactionType = "REFUND"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionPending   TransactionStatus = "PENDING"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction is one wallet ledger line. Debits carry a negative amount.
type Transaction struct {
	ID          string            `json:"id" yaml:"id"`
	UserID      string            `json:"user_id" yaml:"-"`
	Type        TransactionType   `json:"type" yaml:"type"`
	Amount      float64           `json:"amount" yaml:"amount"`
	Date        string            `json:"date" yaml:"date"`
	Status      TransactionStatus `json:"status" yaml:"status"`
	Description string            `json:"description" yaml:"description"`
	CreatedAt   time.Time         `json:"created_at" yaml:"-"`
}

// RoundMoney rounds to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
