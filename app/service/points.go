package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/factory"
	"github.com/lumeo-sites/ms-go-entitlements/app/repository"
)

type pointsRepository interface {
	Apply(ctx context.Context, txn *entity.PointsTransaction) error
	HasReference(ctx context.Context, referenceType, referenceID string) (bool, error)
	Balance(ctx context.Context, userID uint64) (int64, error)
	History(ctx context.Context, userID uint64, limit, offset int) ([]*entity.PointsTransaction, error)
}

const refTypePaymentOrder = "payment_order"

// PointsService is the only mutation path for user point balances. Every
// mutation appends exactly one immutable ledger entry carrying before/after
// snapshots; summing all entries for a user always reproduces the balance.
type PointsService struct {
	points pointsRepository
	audit  *AuditWriter
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewPointsService(points pointsRepository, audit *AuditWriter) *PointsService {
	return &PointsService{
		points: points,
		audit:  audit,
		logger: factory.NewModuleLogger("points"),
		now:    time.Now,
	}
}

func (s *PointsService) Credit(ctx context.Context, userID uint64, amount int64, txnType entity.TransactionType, source, description string, referenceType, referenceID *string) (*entity.PointsTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	txn := &entity.PointsTransaction{
		UserID:        userID,
		Amount:        amount,
		Type:          txnType,
		Source:        source,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.points.Apply(ctx, txn); err != nil {
		return nil, err
	}

	action := "points.credit"
	if txnType == entity.TransactionTypeRefund {
		action = "points.refund"
	}
	s.audit.Record(ctx, actorUser(userID), action, "points_transaction", source, "", "")
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"source":  source,
		"balance": txn.BalanceAfter,
	}).Info("points_credited")

	return txn, nil
}

// Debit enforces sufficiency inside the store's update predicate, not at read
// time. ErrInsufficientBalance after a read that looked sufficient is a
// benign race; the caller reports it or retries.
func (s *PointsService) Debit(ctx context.Context, userID uint64, amount int64, source, description string, referenceType, referenceID *string) (*entity.PointsTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	txn := &entity.PointsTransaction{
		UserID:        userID,
		Amount:        -amount,
		Type:          entity.TransactionTypeSpend,
		Source:        source,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.points.Apply(ctx, txn); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	s.audit.Record(ctx, actorUser(userID), "points.debit", "points_transaction", source, "", "")
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"source":  source,
		"balance": txn.BalanceAfter,
	}).Info("points_debited")

	return txn, nil
}

// Refund is a credit with source "refund"; refunds never check a debt
// ceiling, so any positive amount succeeds.
func (s *PointsService) Refund(ctx context.Context, userID uint64, amount int64, originalReferenceID, description string) (*entity.PointsTransaction, error) {
	refType := refTypePaymentOrder
	refID := originalReferenceID
	return s.Credit(ctx, userID, amount, entity.TransactionTypeRefund, "refund", description, &refType, &refID)
}

// HasCredit reports whether a ledger entry already references the given
// source record, so a redelivered grant does not credit twice.
func (s *PointsService) HasCredit(ctx context.Context, referenceType, referenceID string) (bool, error) {
	return s.points.HasReference(ctx, referenceType, referenceID)
}

func (s *PointsService) Balance(ctx context.Context, userID uint64) (int64, error) {
	return s.points.Balance(ctx, userID)
}

func (s *PointsService) History(ctx context.Context, userID uint64, limit, offset int) ([]*entity.PointsTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.points.History(ctx, userID, limit, offset)
}
