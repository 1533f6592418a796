package types

import (
	"bytes"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

func jsonContext(t *testing.T, method, target, body string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestNewCreateOrderRequestFromContext(t *testing.T) {
	ctx := jsonContext(t, "POST", "/orders",
		`{"user_id":7,"amount_minor_units":990,"product_type":" subscription ","product_id":" gold ","product_name":"Gold","period":"monthly"}`)

	parsed, err := NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.ProductType != "subscription" || parsed.ProductID != "gold" {
		t.Fatalf("expected trimmed fields, got %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if p := parsed.PeriodOrNil(); p == nil || *p != entity.PeriodMonthly {
		t.Fatalf("unexpected period: %v", p)
	}
}

func TestCreateOrderValidate(t *testing.T) {
	base := CreateOrderRequest{UserID: 7, AmountMinorUnits: 990, ProductType: "coins", ProductID: "coins-990"}

	req := base
	req.UserID = 0
	if err := req.Validate(); err == nil {
		t.Fatal("expected user_id validation error")
	}

	req = base
	req.AmountMinorUnits = 0
	if err := req.Validate(); err == nil {
		t.Fatal("expected amount validation error")
	}

	req = base
	req.ProductType = "gadget"
	if err := req.Validate(); err == nil {
		t.Fatal("expected product_type validation error")
	}

	req = base
	req.ProductType = "subscription"
	req.Period = ""
	if err := req.Validate(); err == nil {
		t.Fatal("expected period validation error for subscription orders")
	}

	req = base
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if req.PeriodOrNil() != nil {
		t.Fatal("expected nil period for coin orders")
	}
}

func formContext(t *testing.T, values url.Values) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("POST", "/webhooks/payment-callback", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func callbackValues() url.Values {
	return url.Values{
		"order_no":  {"ORD1"},
		"trade_no":  {"T1"},
		"amount":    {"990"},
		"status":    {" SUCCESS "},
		"timestamp": {"1715331600"},
		"nonce":     {"abc"},
		"sign":      {"deadbeef"},
	}
}

func TestNewCallbackFormFromContext(t *testing.T) {
	ctx := formContext(t, callbackValues())

	form, err := NewCallbackFormFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.OrderNo != "ORD1" || form.AmountMinorUnits != 990 || form.Timestamp != 1715331600 {
		t.Fatalf("unexpected form: %+v", form)
	}
	if form.Status != "success" {
		t.Fatalf("expected normalized status, got %q", form.Status)
	}
}

func TestNewCallbackFormRejectsBadAmount(t *testing.T) {
	values := callbackValues()
	values.Set("amount", "9.90")
	if _, err := NewCallbackFormFromContext(formContext(t, values)); err == nil {
		t.Fatal("expected amount parse error")
	}
}

func TestNewCallbackFormRejectsUnknownStatus(t *testing.T) {
	values := callbackValues()
	values.Set("status", "maybe")
	if _, err := NewCallbackFormFromContext(formContext(t, values)); err == nil {
		t.Fatal("expected status validation error")
	}
}

func TestNewCallbackFormRequiresSignatureFields(t *testing.T) {
	for _, key := range []string{"order_no", "nonce", "sign"} {
		values := callbackValues()
		values.Del(key)
		if _, err := NewCallbackFormFromContext(formContext(t, values)); err == nil {
			t.Fatalf("expected error for missing %s", key)
		}
	}
}

func TestSpendPointsValidate(t *testing.T) {
	req := &SpendPointsRequest{UserID: 7, Amount: 50, Source: "shop"}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	if err := (&SpendPointsRequest{Amount: 50, Source: "shop"}).Validate(); err == nil {
		t.Fatal("expected user_id validation error")
	}
	if err := (&SpendPointsRequest{UserID: 7, Amount: -1, Source: "shop"}).Validate(); err == nil {
		t.Fatal("expected amount validation error")
	}
	if err := (&SpendPointsRequest{UserID: 7, Amount: 50}).Validate(); err == nil {
		t.Fatal("expected source validation error")
	}
}

func TestSpendPointsReference(t *testing.T) {
	req := &SpendPointsRequest{ReferenceType: "shop_item", ReferenceID: "frame-1"}
	refType, refID := req.Reference()
	if refType == nil || *refType != "shop_item" || refID == nil || *refID != "frame-1" {
		t.Fatalf("unexpected reference: %v/%v", refType, refID)
	}

	req = &SpendPointsRequest{ReferenceType: "shop_item"}
	refType, refID = req.Reference()
	if refType != nil || refID != nil {
		t.Fatal("expected nil reference when id is missing")
	}
}

func TestNewUserQueryRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/points/history?user_id=7&limit=10&offset=20", nil)
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewUserQueryRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.UserID != 7 || parsed.Limit != 10 || parsed.Offset != 20 {
		t.Fatalf("unexpected parsed query: %+v", parsed)
	}
}

func TestNewUserQueryRequestRequiresUserID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/points/balance", nil)
	ctx := e.NewContext(req, httptest.NewRecorder())

	if _, err := NewUserQueryRequestFromContext(ctx); err == nil {
		t.Fatal("expected user_id validation error")
	}
}

func TestNewCancelOrderRequestFromContext(t *testing.T) {
	ctx := jsonContext(t, "POST", "/orders/ORD1/cancel", `{"user_id":7}`)
	ctx.SetParamNames("orderNo")
	ctx.SetParamValues("ORD1")

	parsed, err := NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.UserID != 7 || parsed.OrderNo != "ORD1" {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestSubscriptionRequestsValidate(t *testing.T) {
	if err := (&CancelSubscriptionRequest{}).Validate(); err == nil {
		t.Fatal("expected invalid cancel request")
	}
	if err := (&CancelSubscriptionRequest{UserID: 7}).Validate(); err != nil {
		t.Fatalf("expected valid cancel request, got %v", err)
	}
	if err := (&ResumeSubscriptionRequest{}).Validate(); err == nil {
		t.Fatal("expected invalid resume request")
	}
	if err := (&ResumeSubscriptionRequest{UserID: 7}).Validate(); err != nil {
		t.Fatalf("expected valid resume request, got %v", err)
	}
}
