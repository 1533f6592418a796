package entity

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Terminal reports whether no further gateway outcome can change the order,
// except for the explicit paid -> refunded transition.
func (s OrderStatus) Terminal() bool {
	return s != OrderStatusPending
}

type ProductType string

const (
	ProductTypeSubscription ProductType = "subscription"
	ProductTypeCoins        ProductType = "coins"
	ProductTypeShopItem     ProductType = "shop_item"
)

func (p ProductType) Valid() bool {
	switch p {
	case ProductTypeSubscription, ProductTypeCoins, ProductTypeShopItem:
		return true
	default:
		return false
	}
}

// PaymentOrder is one purchase attempt. Orders are never deleted; terminal
// orders are retained for audit.
type PaymentOrder struct {
	ID               uint64
	OrderNo          string
	UserID           uint64
	AmountMinorUnits int64
	ProductType      ProductType
	ProductID        string
	ProductName      string
	Period           *Period
	Status           OrderStatus
	Nonce            string
	TradeNo          *string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	PaidAt           *time.Time
}
