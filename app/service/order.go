package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/factory"
	"github.com/lumeo-sites/ms-go-entitlements/app/repository"
	"github.com/lumeo-sites/ms-go-entitlements/app/signing"
	"github.com/lumeo-sites/ms-go-entitlements/config"
)

const orderNoPrefix = "ORD"

type orderRepository interface {
	Insert(ctx context.Context, order *entity.PaymentOrder) error
	FindByOrderNo(ctx context.Context, orderNo string) (*entity.PaymentOrder, error)
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*entity.PaymentOrder, error)
	MarkPaid(ctx context.Context, orderNo, tradeNo string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderNo string) (bool, error)
	Cancel(ctx context.Context, orderNo string) (bool, error)
	MarkRefunded(ctx context.Context, orderNo string) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type CreateOrderResult struct {
	Order  *entity.PaymentOrder
	PayURL string
}

// OrderService owns the payment order lifecycle:
// pending -> {paid, failed, cancelled, expired}, paid -> refunded.
// Every transition is a conditional update against the stored status, so
// duplicated gateway callbacks and double-clicked checkouts collapse to a
// single effective transition.
type OrderService struct {
	orders  orderRepository
	audit   *AuditWriter
	signing config.SigningConfig
	cfg     config.OrderConfig
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewOrderService(orders orderRepository, audit *AuditWriter, signingCfg config.SigningConfig, cfg config.OrderConfig) *OrderService {
	return &OrderService{
		orders:  orders,
		audit:   audit,
		signing: signingCfg,
		cfg:     cfg,
		logger:  factory.NewModuleLogger("orders"),
		now:     time.Now,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, amountMinorUnits int64, productType entity.ProductType, productID, productName string, period *entity.Period) (*CreateOrderResult, error) {
	if amountMinorUnits <= 0 {
		return nil, ErrInvalidAmount
	}
	if !productType.Valid() || strings.TrimSpace(productID) == "" {
		return nil, ErrInvalidProduct
	}
	if productType == entity.ProductTypeSubscription {
		if period == nil || !period.Valid() {
			return nil, ErrInvalidProduct
		}
	}

	now := s.now().UTC()
	order := &entity.PaymentOrder{
		OrderNo:          generateOrderNo(now),
		UserID:           userID,
		AmountMinorUnits: amountMinorUnits,
		ProductType:      productType,
		ProductID:        productID,
		ProductName:      productName,
		Period:           period,
		Status:           entity.OrderStatusPending,
		Nonce:            strings.ReplaceAll(uuid.NewString(), "-", ""),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.PendingTTL),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderConflict) {
			return nil, ErrOrderNumberConflict
		}
		return nil, err
	}

	payURL := s.buildPayURL(order, now)
	s.audit.Record(ctx, actorUser(userID), "order.created", "payment_order", order.OrderNo,
		"", string(entity.OrderStatusPending))
	s.logger.WithFields(logrus.Fields{
		"order_no": order.OrderNo,
		"user_id":  userID,
		"amount":   amountMinorUnits,
		"product":  string(productType) + "/" + productID,
	}).Info("order_created")

	return &CreateOrderResult{Order: order, PayURL: payURL}, nil
}

// ApplyCallback transitions the order according to a verified gateway
// outcome. Amount matching is exact down to the minor unit.
func (s *OrderService) ApplyCallback(ctx context.Context, orderNo, tradeNo string, confirmedAmount int64, outcome string) (*entity.PaymentOrder, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}

	now := s.now().UTC()
	if now.After(order.ExpiresAt) {
		return nil, fmt.Errorf("%w: order %s expired at %s", ErrExpired, orderNo, order.ExpiresAt.Format(time.RFC3339))
	}

	if outcome != "success" {
		ok, err := s.orders.MarkFailed(ctx, orderNo)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAlreadyTerminal
		}
		order.Status = entity.OrderStatusFailed
		s.audit.Record(ctx, actorGateway, "order.failed", "payment_order", orderNo,
			string(entity.OrderStatusPending), string(entity.OrderStatusFailed))
		return order, nil
	}

	if confirmedAmount != order.AmountMinorUnits {
		s.logger.WithFields(logrus.Fields{
			"order_no":  orderNo,
			"expected":  order.AmountMinorUnits,
			"confirmed": confirmedAmount,
		}).Warn("callback_amount_mismatch")
		return nil, ErrAmountMismatch
	}

	ok, err := s.orders.MarkPaid(ctx, orderNo, tradeNo, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race against another callback or the expiry sweep.
		return nil, ErrAlreadyTerminal
	}

	order.Status = entity.OrderStatusPaid
	order.TradeNo = &tradeNo
	order.PaidAt = &now
	s.audit.Record(ctx, actorGateway, "order.paid", "payment_order", orderNo,
		string(entity.OrderStatusPending), string(entity.OrderStatusPaid))
	s.logger.WithFields(logrus.Fields{
		"order_no": orderNo,
		"trade_no": tradeNo,
	}).Info("order_paid")

	return order, nil
}

// Redelivered resolves a repeated confirmation whose transition already
// landed. The stored order is returned only when it matches the redelivered
// outcome exactly, so the caller can acknowledge the retry and, for
// settlements, finish an interrupted grant.
func (s *OrderService) Redelivered(ctx context.Context, orderNo, tradeNo string, confirmedAmount int64, outcome string) (*entity.PaymentOrder, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	switch {
	case outcome == "success" &&
		order.Status == entity.OrderStatusPaid &&
		order.TradeNo != nil && *order.TradeNo == tradeNo &&
		order.AmountMinorUnits == confirmedAmount:
		return order, nil
	case outcome != "success" && order.Status == entity.OrderStatusFailed:
		return order, nil
	}
	return nil, ErrAlreadyTerminal
}

func (s *OrderService) Cancel(ctx context.Context, userID uint64, orderNo string) (*entity.PaymentOrder, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}

	ok, err := s.orders.Cancel(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyTerminal
	}

	order.Status = entity.OrderStatusCancelled
	s.audit.Record(ctx, actorUser(userID), "order.cancelled", "payment_order", orderNo,
		string(entity.OrderStatusPending), string(entity.OrderStatusCancelled))
	return order, nil
}

// Refund moves a paid order to refunded. The points-side compensation is a
// separate explicit ledger refund; this only records the order state.
func (s *OrderService) Refund(ctx context.Context, orderNo string) (*entity.PaymentOrder, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != entity.OrderStatusPaid {
		return nil, ErrAlreadyTerminal
	}

	ok, err := s.orders.MarkRefunded(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyTerminal
	}

	order.Status = entity.OrderStatusRefunded
	s.audit.Record(ctx, actorAdmin, "order.refunded", "payment_order", orderNo,
		string(entity.OrderStatusPaid), string(entity.OrderStatusRefunded))
	return order, nil
}

// ExpireStaleOrders is safe to run on any cadence; overlapping runs with the
// same clock reading change nothing an earlier run already expired.
func (s *OrderService) ExpireStaleOrders(ctx context.Context) (int64, error) {
	count, err := s.orders.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.audit.Record(ctx, actorSystem, "order.expired_sweep", "payment_order", "",
			"", strconv.FormatInt(count, 10))
		s.logger.WithField("count", count).Info("orders_expired")
	}
	return count, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID uint64, orderNo string) (*entity.PaymentOrder, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint64, limit, offset int) ([]*entity.PaymentOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

func (s *OrderService) buildPayURL(order *entity.PaymentOrder, now time.Time) string {
	payload := map[string]string{
		"order_no":     order.OrderNo,
		"user_id":      strconv.FormatUint(order.UserID, 10),
		"amount":       strconv.FormatInt(order.AmountMinorUnits, 10),
		"product_type": string(order.ProductType),
		"product_id":   order.ProductID,
	}
	envelope := signing.Sign(payload, s.signing.RequestSecret, now)

	values := url.Values{}
	for k, v := range payload {
		values.Set(k, v)
	}
	values.Set("nonce", envelope.Nonce)
	values.Set("ts", strconv.FormatInt(envelope.Timestamp, 10))
	values.Set("sig", envelope.Signature)

	return s.cfg.PayBaseURL + "?" + values.Encode()
}

// generateOrderNo builds a globally unique order number from a fixed prefix,
// a UTC timestamp and a random suffix. A unique-constraint violation on
// insert is surfaced as ErrOrderNumberConflict so the caller retries with a
// fresh number.
func generateOrderNo(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return orderNoPrefix + now.Format("20060102150405") + suffix
}

const (
	actorGateway = "gateway"
	actorSystem  = "system"
	actorAdmin   = "admin"
)

func actorUser(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}
