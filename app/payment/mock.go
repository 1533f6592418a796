package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/lumeo-sites/ms-go-entitlements/app/service"
	"github.com/lumeo-sites/ms-go-entitlements/app/signing"
)

// MockGateway produces the signed confirmation the real gateway would send
// after settling an order. It signs with the callback secret the same way
// the verifier expects.
type MockGateway struct {
	secret string
	now    func() time.Time
}

func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{secret: secret, now: time.Now}
}

func (g *MockGateway) Confirm(_ context.Context, orderNo, tradeNo string, amountMinorUnits int64, outcome string) *service.CallbackForm {
	payload := map[string]string{
		"order_no": orderNo,
		"trade_no": tradeNo,
		"amount":   strconv.FormatInt(amountMinorUnits, 10),
		"status":   outcome,
	}
	envelope := signing.Sign(payload, g.secret, g.now().UTC())

	return &service.CallbackForm{
		OrderNo:          orderNo,
		TradeNo:          tradeNo,
		AmountMinorUnits: amountMinorUnits,
		Status:           outcome,
		Timestamp:        envelope.Timestamp,
		Nonce:            envelope.Nonce,
		Sign:             envelope.Signature,
	}
}
