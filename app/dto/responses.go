package dto

type OrderResponse struct {
	ID               uint64  `json:"id"`
	OrderNo          string  `json:"order_no"`
	UserID           uint64  `json:"user_id"`
	AmountMinorUnits int64   `json:"amount_minor_units"`
	ProductType      string  `json:"product_type"`
	ProductID        string  `json:"product_id"`
	ProductName      string  `json:"product_name"`
	Period           string  `json:"period,omitempty"`
	Status           string  `json:"status"`
	TradeNo          *string `json:"trade_no,omitempty"`
	CreatedAt        string  `json:"created_at"`
	ExpiresAt        string  `json:"expires_at"`
	PaidAt           *string `json:"paid_at,omitempty"`
}

type CreateOrderResponse struct {
	Order  OrderResponse `json:"order"`
	PayURL string        `json:"pay_url"`
}

type OrderEnvelopeResponse struct {
	Order OrderResponse `json:"order"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type PointsTransactionResponse struct {
	ID            uint64  `json:"id"`
	UserID        uint64  `json:"user_id"`
	Amount        int64   `json:"amount"`
	Type          string  `json:"type"`
	Source        string  `json:"source"`
	Description   string  `json:"description,omitempty"`
	BalanceBefore int64   `json:"balance_before"`
	BalanceAfter  int64   `json:"balance_after"`
	ReferenceType *string `json:"reference_type,omitempty"`
	ReferenceID   *string `json:"reference_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type BalanceResponse struct {
	UserID  uint64 `json:"user_id"`
	Balance int64  `json:"balance"`
}

type PointsHistoryResponse struct {
	Transactions []PointsTransactionResponse `json:"transactions"`
}

type SpendPointsResponse struct {
	Transaction PointsTransactionResponse `json:"transaction"`
}

type PrivilegesResponse struct {
	AdFree             bool  `json:"ad_free"`
	HiResGallery       bool  `json:"hi_res_gallery"`
	ExclusiveArticles  bool  `json:"exclusive_articles"`
	MonthlyBonusPoints int64 `json:"monthly_bonus_points"`
	GalleryQuotaMB     int64 `json:"gallery_quota_mb"`
}

type TierResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Rank       int32              `json:"rank"`
	Privileges PrivilegesResponse `json:"privileges"`
}

type ListTiersResponse struct {
	Tiers []TierResponse `json:"tiers"`
}

type SubscriptionResponse struct {
	ID           uint64  `json:"id"`
	UserID       uint64  `json:"user_id"`
	TierID       string  `json:"tier_id"`
	Period       string  `json:"period"`
	Status       string  `json:"status"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	AutoRenew    bool    `json:"auto_renew"`
	CancelledAt  *string `json:"cancelled_at,omitempty"`
	CancelReason *string `json:"cancel_reason,omitempty"`
}

type CurrentSubscriptionResponse struct {
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
	Tier         TierResponse          `json:"tier"`
}

type SubscriptionEnvelopeResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
