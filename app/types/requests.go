package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/service"
)

type CreateOrderRequest struct {
	UserID           uint64 `json:"user_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	ProductType      string `json:"product_type"`
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name"`
	Period           string `json:"period"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ProductType = strings.TrimSpace(body.ProductType)
	body.ProductID = strings.TrimSpace(body.ProductID)
	body.ProductName = strings.TrimSpace(body.ProductName)
	body.Period = strings.TrimSpace(body.Period)
	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if r.AmountMinorUnits <= 0 {
		return errors.New("amount_minor_units must be a positive integer")
	}
	if !entity.ProductType(r.ProductType).Valid() {
		return errors.New("product_type must be one of subscription, coins, shop_item")
	}
	if r.ProductID == "" {
		return errors.New("product_id is required")
	}
	if entity.ProductType(r.ProductType) == entity.ProductTypeSubscription {
		if !entity.Period(r.Period).Valid() {
			return errors.New("period must be one of monthly, quarterly, yearly")
		}
	}
	return nil
}

// PeriodOrNil returns the parsed period for subscription orders.
func (r *CreateOrderRequest) PeriodOrNil() *entity.Period {
	if r.Period == "" {
		return nil
	}
	p := entity.Period(r.Period)
	return &p
}

// NewCallbackFormFromContext parses the gateway confirmation. The gateway
// posts form fields; amount arrives as a string or an integer and is
// normalized here.
func NewCallbackFormFromContext(ctx echo.Context) (*service.CallbackForm, error) {
	amountRaw := strings.TrimSpace(ctx.FormValue("amount"))
	amount, err := strconv.ParseInt(amountRaw, 10, 64)
	if err != nil {
		return nil, errors.New("amount must be an integer in minor units")
	}
	tsRaw := strings.TrimSpace(ctx.FormValue("timestamp"))
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return nil, errors.New("timestamp must be a unix timestamp")
	}

	form := &service.CallbackForm{
		OrderNo:          strings.TrimSpace(ctx.FormValue("order_no")),
		TradeNo:          strings.TrimSpace(ctx.FormValue("trade_no")),
		AmountMinorUnits: amount,
		Status:           strings.ToLower(strings.TrimSpace(ctx.FormValue("status"))),
		Timestamp:        ts,
		Nonce:            strings.TrimSpace(ctx.FormValue("nonce")),
		Sign:             strings.TrimSpace(ctx.FormValue("sign")),
	}

	if form.OrderNo == "" || form.Nonce == "" || form.Sign == "" {
		return nil, errors.New("order_no, nonce and sign are required")
	}
	if form.Status != "success" && form.Status != "failed" {
		return nil, errors.New("status must be success or failed")
	}
	return form, nil
}

type SpendPointsRequest struct {
	UserID        uint64 `json:"user_id"`
	Amount        int64  `json:"amount"`
	Source        string `json:"source"`
	Description   string `json:"description"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

func NewSpendPointsRequestFromContext(ctx echo.Context) (*SpendPointsRequest, error) {
	var body SpendPointsRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Source = strings.TrimSpace(body.Source)
	body.Description = strings.TrimSpace(body.Description)
	body.ReferenceType = strings.TrimSpace(body.ReferenceType)
	body.ReferenceID = strings.TrimSpace(body.ReferenceID)
	return &body, nil
}

func (r *SpendPointsRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be a positive integer")
	}
	if r.Source == "" {
		return errors.New("source is required")
	}
	return nil
}

func (r *SpendPointsRequest) Reference() (*string, *string) {
	if r.ReferenceType == "" || r.ReferenceID == "" {
		return nil, nil
	}
	return &r.ReferenceType, &r.ReferenceID
}

type UserQueryRequest struct {
	UserID uint64
	Limit  int
	Offset int
}

func NewUserQueryRequestFromContext(ctx echo.Context) (*UserQueryRequest, error) {
	userID, err := strconv.ParseUint(strings.TrimSpace(ctx.QueryParam("user_id")), 10, 64)
	if err != nil || userID == 0 {
		return nil, errors.New("user_id is required")
	}

	req := &UserQueryRequest{UserID: userID}
	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		if req.Limit, err = strconv.Atoi(raw); err != nil {
			return nil, errors.New("limit must be an integer")
		}
	}
	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		if req.Offset, err = strconv.Atoi(raw); err != nil {
			return nil, errors.New("offset must be an integer")
		}
	}
	return req, nil
}

type CancelSubscriptionRequest struct {
	UserID uint64 `json:"user_id"`
	Reason string `json:"reason"`
}

func NewCancelSubscriptionRequestFromContext(ctx echo.Context) (*CancelSubscriptionRequest, error) {
	var body CancelSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Reason = strings.TrimSpace(body.Reason)
	return &body, nil
}

func (r *CancelSubscriptionRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	return nil
}

type ResumeSubscriptionRequest struct {
	UserID uint64 `json:"user_id"`
}

func NewResumeSubscriptionRequestFromContext(ctx echo.Context) (*ResumeSubscriptionRequest, error) {
	var body ResumeSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *ResumeSubscriptionRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	return nil
}

type CancelOrderRequest struct {
	UserID  uint64 `json:"user_id"`
	OrderNo string `param:"orderNo"`
}

func NewCancelOrderRequestFromContext(ctx echo.Context) (*CancelOrderRequest, error) {
	var body CancelOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderNo = strings.TrimSpace(ctx.Param("orderNo"))
	return &body, nil
}

func (r *CancelOrderRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if r.OrderNo == "" {
		return errors.New("order number is required")
	}
	return nil
}
