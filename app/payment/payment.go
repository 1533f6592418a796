package payment

import (
	"context"

	"github.com/lumeo-sites/ms-go-entitlements/app/service"
)

// Gateway abstracts the external payment provider. Real settlement is out of
// scope; the only implementation simulates the provider's signed
// confirmation round-trip.
type Gateway interface {
	Confirm(ctx context.Context, orderNo, tradeNo string, amountMinorUnits int64, outcome string) *service.CallbackForm
}
