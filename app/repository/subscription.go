package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Insert(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			user_id, tier_id, period, status, start_date, end_date,
			auto_renew, cancelled_at, cancel_reason, next_notify_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.UserID,
		sub.TierID,
		string(sub.Period),
		string(sub.Status),
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
		nullableTimeValue(sub.CancelledAt),
		nullableStringValue(sub.CancelReason),
		nullableTimeValue(sub.NextNotifyAt),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sub.ID = uint64(id)
	return nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *entity.Subscription) error {
	query := `
		UPDATE subscriptions
		SET tier_id = ?, period = ?, status = ?, start_date = ?, end_date = ?,
		    auto_renew = ?, cancelled_at = ?, cancel_reason = ?, next_notify_at = ?,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.TierID,
		string(sub.Period),
		string(sub.Status),
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
		nullableTimeValue(sub.CancelledAt),
		nullableStringValue(sub.CancelReason),
		nullableTimeValue(sub.NextNotifyAt),
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}

// FindActiveByUser returns the user's active subscription whose end date is
// still in the future, or nil when none exists. At most one such row exists
// per user.
func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID uint64, now time.Time) (*entity.Subscription, error) {
	query := selectSubscriptionColumns + `
		WHERE user_id = ? AND status = ? AND end_date > ?
		ORDER BY end_date DESC
		LIMIT 1
	`

	item := &entity.Subscription{}
	if err := scanSubscription(
		r.db.QueryRowContext(ctx, query, userID, string(entity.SubscriptionStatusActive), now),
		item,
	); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

// ExpireDue transitions active subscriptions past their end date: rows with a
// recorded cancellation become cancelled, the rest become expired. Both
// statements are idempotent for a fixed clock reading.
func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	cancelled, err := r.transitionDue(ctx, now, entity.SubscriptionStatusCancelled, "cancelled_at IS NOT NULL")
	if err != nil {
		return 0, err
	}
	expired, err := r.transitionDue(ctx, now, entity.SubscriptionStatusExpired, "cancelled_at IS NULL")
	if err != nil {
		return cancelled, err
	}
	return cancelled + expired, nil
}

func (r *SubscriptionRepository) transitionDue(ctx context.Context, now time.Time, to entity.SubscriptionStatus, extra string) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = ?, updated_at = ?
		WHERE status = ? AND end_date < ? AND ` + extra

	result, err := r.db.ExecContext(ctx, query,
		string(to), now, string(entity.SubscriptionStatusActive), now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const selectSubscriptionColumns = `
	SELECT id, user_id, tier_id, period, status, start_date, end_date,
	       auto_renew, cancelled_at, cancel_reason, next_notify_at,
	       created_at, updated_at
	FROM subscriptions`

func scanSubscription(scanner rowScanner, item *entity.Subscription) error {
	var period, status string
	var cancelledAt, nextNotifyAt sql.NullTime
	var cancelReason sql.NullString

	err := scanner.Scan(
		&item.ID,
		&item.UserID,
		&item.TierID,
		&period,
		&status,
		&item.StartDate,
		&item.EndDate,
		&item.AutoRenew,
		&cancelledAt,
		&cancelReason,
		&nextNotifyAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	item.Period = entity.Period(period)
	item.Status = entity.SubscriptionStatus(status)
	if cancelledAt.Valid {
		item.CancelledAt = &cancelledAt.Time
	} else {
		item.CancelledAt = nil
	}
	if cancelReason.Valid {
		item.CancelReason = &cancelReason.String
	} else {
		item.CancelReason = nil
	}
	if nextNotifyAt.Valid {
		item.NextNotifyAt = &nextNotifyAt.Time
	} else {
		item.NextNotifyAt = nil
	}

	return nil
}
