package service

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/factory"
	"github.com/lumeo-sites/ms-go-entitlements/config"
)

type subscriptionRepository interface {
	Insert(ctx context.Context, sub *entity.Subscription) error
	Update(ctx context.Context, sub *entity.Subscription) error
	FindActiveByUser(ctx context.Context, userID uint64, now time.Time) (*entity.Subscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type tierRepository interface {
	FindByID(ctx context.Context, id string) (*entity.MembershipTier, error)
	List(ctx context.Context) ([]*entity.MembershipTier, error)
}

type SubscriptionService struct {
	subs   subscriptionRepository
	tiers  tierRepository
	audit  *AuditWriter
	cfg    config.SubscriptionConfig
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewSubscriptionService(subs subscriptionRepository, tiers tierRepository, audit *AuditWriter, cfg config.SubscriptionConfig) *SubscriptionService {
	return &SubscriptionService{
		subs:   subs,
		tiers:  tiers,
		audit:  audit,
		cfg:    cfg,
		logger: factory.NewModuleLogger("subscriptions"),
		now:    time.Now,
	}
}

// CreateOrActivate derives the entitlement for a paid subscription order.
// No active subscription: a fresh one starts now. Same or lower tier: the
// end date extends from the current expiry, so early renewal never wastes
// paid time. Higher tier: the subscription restarts now on the new tier and
// the remaining lower-tier time is forfeited.
func (s *SubscriptionService) CreateOrActivate(ctx context.Context, userID uint64, tierID string, period entity.Period) (*entity.Subscription, error) {
	if !period.Valid() {
		return nil, ErrInvalidProduct
	}
	tier, err := s.tiers.FindByID(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, ErrTierNotFound
	}

	now := s.now().UTC()
	existing, err := s.subs.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		sub := &entity.Subscription{
			UserID:    userID,
			TierID:    tierID,
			Period:    period,
			Status:    entity.SubscriptionStatusActive,
			StartDate: now,
			EndDate:   period.AddTo(now),
			AutoRenew: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sub.NextNotifyAt = s.notifyAt(sub.EndDate)
		if err := s.subs.Insert(ctx, sub); err != nil {
			return nil, err
		}
		s.recordChange(ctx, userID, "subscription.created", sub)
		return sub, nil
	}

	currentTier, err := s.tiers.FindByID(ctx, existing.TierID)
	if err != nil {
		return nil, err
	}
	currentRank := int32(0)
	if currentTier != nil {
		currentRank = currentTier.Rank
	}

	action := "subscription.renewed"
	if tier.Rank > currentRank {
		action = "subscription.upgraded"
		existing.TierID = tierID
		existing.StartDate = now
		existing.EndDate = period.AddTo(now)
	} else {
		existing.EndDate = period.AddTo(existing.EndDate)
	}
	existing.Period = period
	existing.Status = entity.SubscriptionStatusActive
	existing.NextNotifyAt = s.notifyAt(existing.EndDate)
	existing.UpdatedAt = now

	if err := s.subs.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.recordChange(ctx, userID, action, existing)
	return existing, nil
}

// Cancel stops future renewal only; the paid period runs to its end date.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uint64, reason string) (*entity.Subscription, error) {
	now := s.now().UTC()
	sub, err := s.subs.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSub
	}

	sub.AutoRenew = false
	sub.CancelledAt = &now
	if reason != "" {
		sub.CancelReason = &reason
	}
	sub.UpdatedAt = now

	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorUser(userID), "subscription.cancelled", "subscription",
		strconv.FormatUint(sub.ID, 10), "", reason)
	return sub, nil
}

func (s *SubscriptionService) Resume(ctx context.Context, userID uint64) (*entity.Subscription, error) {
	now := s.now().UTC()
	sub, err := s.subs.FindActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSub
	}

	sub.AutoRenew = true
	sub.CancelledAt = nil
	sub.CancelReason = nil
	sub.UpdatedAt = now

	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorUser(userID), "subscription.resumed", "subscription",
		strconv.FormatUint(sub.ID, 10), "", "")
	return sub, nil
}

func (s *SubscriptionService) ExpireDue(ctx context.Context) (int64, error) {
	count, err := s.subs.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.WithField("count", count).Info("subscriptions_expired")
	}
	return count, nil
}

// CurrentTier is the single source of truth for gating privileged features.
// Users without an active subscription get the free tier sentinel, as do
// users whose subscription points at a tier missing from the catalog.
func (s *SubscriptionService) CurrentTier(ctx context.Context, userID uint64) (*entity.MembershipTier, error) {
	sub, err := s.subs.FindActiveByUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return entity.FreeTier(), nil
	}

	tier, err := s.tiers.FindByID(ctx, sub.TierID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return entity.FreeTier(), nil
	}
	return tier, nil
}

// ListTiers returns the purchasable catalog ordered by rank.
func (s *SubscriptionService) ListTiers(ctx context.Context) ([]*entity.MembershipTier, error) {
	return s.tiers.List(ctx)
}

func (s *SubscriptionService) Current(ctx context.Context, userID uint64) (*entity.Subscription, error) {
	sub, err := s.subs.FindActiveByUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSub
	}
	return sub, nil
}

func (s *SubscriptionService) notifyAt(endDate time.Time) *time.Time {
	at := endDate.Add(-s.cfg.NotifyLead)
	return &at
}

func (s *SubscriptionService) recordChange(ctx context.Context, userID uint64, action string, sub *entity.Subscription) {
	s.audit.Record(ctx, actorUser(userID), action, "subscription",
		strconv.FormatUint(sub.ID, 10), "", sub.EndDate.Format(time.RFC3339))
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"tier_id":  sub.TierID,
		"end_date": sub.EndDate.Format(time.RFC3339),
	}).Info(action)
}
