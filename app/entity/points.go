package entity

import "time"

type TransactionType string

const (
	TransactionTypeEarn   TransactionType = "earn"
	TransactionTypeSpend  TransactionType = "spend"
	TransactionTypeGift   TransactionType = "gift"
	TransactionTypeRefund TransactionType = "refund"
	TransactionTypeExpire TransactionType = "expire"
)

// PointsBalance is the single non-negative balance row per user.
type PointsBalance struct {
	UserID    uint64
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PointsTransaction is an immutable ledger entry. Amount is signed: positive
// for credits, negative for debits. Replaying all entries for a user in
// creation order must reproduce the current balance exactly.
type PointsTransaction struct {
	ID            uint64
	UserID        uint64
	Amount        int64
	Type          TransactionType
	Source        string
	Description   string
	ReferenceType *string
	ReferenceID   *string
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}
