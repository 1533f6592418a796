package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/factory"
)

type auditRepository interface {
	Insert(ctx context.Context, record *entity.AuditRecord) error
}

// RiskForAction is the fixed classification lookup. Refunds and cancellations
// are high risk, payment success and subscription grants medium, everything
// else low. Security rejections are classified where they are detected.
func RiskForAction(action string) entity.RiskLevel {
	switch action {
	case "order.refunded",
		"order.cancelled",
		"points.refund",
		"subscription.cancelled",
		"callback.invalid_signature",
		"callback.replay":
		return entity.RiskHigh
	case "callback.expired_signature",
		"order.paid",
		"subscription.created",
		"subscription.renewed",
		"subscription.upgraded",
		"entitlement.coins_granted":
		return entity.RiskMedium
	default:
		return entity.RiskLow
	}
}

// AuditWriter appends audit records best-effort: a failed write is logged and
// never propagated, so audit can never roll back or block the business
// transaction it describes.
type AuditWriter struct {
	repo   auditRepository
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewAuditWriter(repo auditRepository) *AuditWriter {
	return &AuditWriter{
		repo:   repo,
		logger: factory.NewModuleLogger("audit"),
		now:    time.Now,
	}
}

func (w *AuditWriter) Record(ctx context.Context, actor, action, targetType, targetID, before, after string) {
	record := &entity.AuditRecord{
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Before:     before,
		After:      after,
		Risk:       RiskForAction(action),
		CreatedAt:  w.now().UTC(),
	}
	if err := w.repo.Insert(ctx, record); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"action":    action,
			"target_id": targetID,
		}).Warn("audit_write_failed")
	}
}
