package entity

import "time"

type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	default:
		return false
	}
}

// AddTo returns base advanced by one period using calendar arithmetic, so a
// monthly renewal of an end date on the 10th lands on the 10th again.
func (p Period) AddTo(base time.Time) time.Time {
	switch p {
	case PeriodQuarterly:
		return base.AddDate(0, 3, 0)
	case PeriodYearly:
		return base.AddDate(1, 0, 0)
	default:
		return base.AddDate(0, 1, 0)
	}
}

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID           uint64
	UserID       uint64
	TierID       string
	Period       Period
	Status       SubscriptionStatus
	StartDate    time.Time
	EndDate      time.Time
	AutoRenew    bool
	CancelledAt  *time.Time
	CancelReason *string
	NextNotifyAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
