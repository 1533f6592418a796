package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/factory"
	"github.com/lumeo-sites/ms-go-entitlements/app/signing"
	"github.com/lumeo-sites/ms-go-entitlements/config"
)

// CallbackForm is the parsed gateway confirmation. The signature covers every
// field except Sign itself.
type CallbackForm struct {
	OrderNo          string
	TradeNo          string
	AmountMinorUnits int64
	Status           string
	Timestamp        int64
	Nonce            string
	Sign             string
}

type nonceStore interface {
	MarkUsed(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, nonce string) error
	IncrWithTTL(ctx context.Context, name string, ttl time.Duration) (int64, error)
}

type callbackApplier interface {
	ApplyCallback(ctx context.Context, orderNo, tradeNo string, confirmedAmount int64, outcome string) (*entity.PaymentOrder, error)
	Redelivered(ctx context.Context, orderNo, tradeNo string, confirmedAmount int64, outcome string) (*entity.PaymentOrder, error)
}

type pointsCreditor interface {
	Credit(ctx context.Context, userID uint64, amount int64, txnType entity.TransactionType, source, description string, referenceType, referenceID *string) (*entity.PointsTransaction, error)
	HasCredit(ctx context.Context, referenceType, referenceID string) (bool, error)
}

// callbackAttemptAlarm is the per-order delivery count within one signature
// window that gets flagged in the logs.
const callbackAttemptAlarm = 5

type subscriptionActivator interface {
	CreateOrActivate(ctx context.Context, userID uint64, tierID string, period entity.Period) (*entity.Subscription, error)
}

// EntitlementService is the thin coordinator behind the callback webhook:
// verify the signature, burn the nonce, transition the order, then grant the
// entitlement the order was for.
type EntitlementService struct {
	nonces  nonceStore
	orders  callbackApplier
	points  pointsCreditor
	subs    subscriptionActivator
	audit   *AuditWriter
	signing config.SigningConfig
	cfg     config.PointsConfig
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewEntitlementService(
	nonces nonceStore,
	orders callbackApplier,
	points pointsCreditor,
	subs subscriptionActivator,
	audit *AuditWriter,
	signingCfg config.SigningConfig,
	pointsCfg config.PointsConfig,
) *EntitlementService {
	return &EntitlementService{
		nonces:  nonces,
		orders:  orders,
		points:  points,
		subs:    subs,
		audit:   audit,
		signing: signingCfg,
		cfg:     pointsCfg,
		logger:  factory.NewModuleLogger("entitlements"),
		now:     time.Now,
	}
}

// HandleCallback processes one gateway confirmation end to end. Any returned
// error means the caller must answer the gateway with a non-success response
// so the gateway retries; nothing here retries internally.
func (s *EntitlementService) HandleCallback(ctx context.Context, form *CallbackForm) error {
	payload := map[string]string{
		"order_no":  form.OrderNo,
		"trade_no":  form.TradeNo,
		"amount":    fmt.Sprintf("%d", form.AmountMinorUnits),
		"status":    form.Status,
		"timestamp": fmt.Sprintf("%d", form.Timestamp),
	}

	err := signing.Verify(payload, form.Nonce, form.Timestamp, form.Sign,
		s.signing.CallbackSecret, signing.CallbackWindow, s.now().UTC())
	switch {
	case errors.Is(err, signing.ErrSignatureExpired):
		s.audit.Record(ctx, actorGateway, "callback.expired_signature", "payment_order", form.OrderNo, "", "")
		s.logger.WithField("order_no", form.OrderNo).Warn("callback_signature_expired")
		return ErrExpired
	case errors.Is(err, signing.ErrInvalidSignature):
		s.audit.Record(ctx, actorGateway, "callback.invalid_signature", "payment_order", form.OrderNo, "", "")
		s.logger.WithField("order_no", form.OrderNo).Warn("callback_signature_invalid")
		return ErrInvalidSignature
	case err != nil:
		return err
	}

	first, err := s.nonces.MarkUsed(ctx, form.Nonce, signing.CallbackWindow)
	if err != nil {
		return fmt.Errorf("nonce store: %w", err)
	}
	if !first {
		s.audit.Record(ctx, actorGateway, "callback.replay", "payment_order", form.OrderNo, "", "")
		s.logger.WithField("order_no", form.OrderNo).Warn("callback_replayed")
		return ErrReplayDetected
	}

	if attempts, cntErr := s.nonces.IncrWithTTL(ctx, "callback:"+form.OrderNo, signing.CallbackWindow); cntErr == nil && attempts >= callbackAttemptAlarm {
		s.logger.WithFields(logrus.Fields{
			"order_no": form.OrderNo,
			"attempts": attempts,
		}).Warn("callback_attempts_high")
	}

	if err := s.settle(ctx, form); err != nil {
		// A non-success answer makes the gateway retry the same signed
		// form, so that retry must get a clean run at the nonce check.
		if relErr := s.nonces.Release(ctx, form.Nonce); relErr != nil {
			s.logger.WithError(relErr).WithField("order_no", form.OrderNo).Error("nonce_release_failed")
		}
		return err
	}
	return nil
}

func (s *EntitlementService) settle(ctx context.Context, form *CallbackForm) error {
	order, err := s.orders.ApplyCallback(ctx, form.OrderNo, form.TradeNo, form.AmountMinorUnits, form.Status)
	if errors.Is(err, ErrAlreadyTerminal) {
		// A previous delivery may have transitioned the order and then
		// died before the grant landed. A redelivery matching the stored
		// outcome finishes the work; anything else stays rejected.
		order, err = s.orders.Redelivered(ctx, form.OrderNo, form.TradeNo, form.AmountMinorUnits, form.Status)
	}
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusPaid {
		return nil
	}

	return s.dispatch(ctx, order)
}

func (s *EntitlementService) dispatch(ctx context.Context, order *entity.PaymentOrder) error {
	switch order.ProductType {
	case entity.ProductTypeCoins:
		granted, err := s.points.HasCredit(ctx, refTypePaymentOrder, order.OrderNo)
		if err != nil {
			return err
		}
		if granted {
			// A redelivery of a settlement whose credit already landed.
			return nil
		}

		rate := s.cfg.CoinsPerMinorUnit
		if rate <= 0 {
			rate = 1
		}
		refType := refTypePaymentOrder
		refID := order.OrderNo
		if _, err := s.points.Credit(ctx, order.UserID, order.AmountMinorUnits*rate,
			entity.TransactionTypeEarn, "coin_topup", order.ProductName, &refType, &refID); err != nil {
			return err
		}
		s.audit.Record(ctx, actorSystem, "entitlement.coins_granted", "payment_order", order.OrderNo, "", "")
		return nil

	case entity.ProductTypeSubscription:
		if order.Period == nil {
			return fmt.Errorf("%w: subscription order %s has no period", ErrInvalidCallback, order.OrderNo)
		}
		_, err := s.subs.CreateOrActivate(ctx, order.UserID, order.ProductID, *order.Period)
		return err

	default:
		// Shop purchases are synchronous ledger debits and never flow
		// through the gateway.
		return fmt.Errorf("%w: product type %s is not order-based", ErrInvalidCallback, order.ProductType)
	}
}
