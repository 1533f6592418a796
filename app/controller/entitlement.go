package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/lumeo-sites/ms-go-entitlements/app/dto"
	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
	"github.com/lumeo-sites/ms-go-entitlements/app/factory"
	"github.com/lumeo-sites/ms-go-entitlements/app/mapper"
	"github.com/lumeo-sites/ms-go-entitlements/app/service"
	"github.com/lumeo-sites/ms-go-entitlements/app/types"
)

type EntitlementController struct {
	orderService        *service.OrderService
	pointsService       *service.PointsService
	subscriptionService *service.SubscriptionService
	entitlementService  *service.EntitlementService
	logger              logrus.FieldLogger
}

func NewEntitlementController(
	orderService *service.OrderService,
	pointsService *service.PointsService,
	subscriptionService *service.SubscriptionService,
	entitlementService *service.EntitlementService,
) *EntitlementController {
	return &EntitlementController{
		orderService:        orderService,
		pointsService:       pointsService,
		subscriptionService: subscriptionService,
		entitlementService:  entitlementService,
		logger:              factory.NewModuleLogger("entitlements-controller"),
	}
}

func (c *EntitlementController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &dto.HealthResponse{Status: "ok"})
}

func (c *EntitlementController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orderService.CreateOrder(
		ctx.Request().Context(),
		req.UserID,
		req.AmountMinorUnits,
		entity.ProductType(req.ProductType),
		req.ProductID,
		req.ProductName,
		req.PeriodOrNil(),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidProduct):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderNumberConflict):
			return c.writeError(ctx, http.StatusConflict, "order number conflict, retry the request")
		default:
			c.logger.WithError(err).Error("Create order failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &dto.CreateOrderResponse{
		Order:  mapper.OrderToResponse(result.Order),
		PayURL: result.PayURL,
	})
}

func (c *EntitlementController) GetOrder(ctx echo.Context) error {
	req, err := types.NewUserQueryRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}
	orderNo := ctx.Param("orderNo")
	if orderNo == "" {
		return c.writeError(ctx, http.StatusBadRequest, "order number is required")
	}

	item, err := c.orderService.GetOrder(ctx.Request().Context(), req.UserID, orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		}
		c.logger.WithError(err).Error("Get order failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.OrderEnvelopeResponse{Order: mapper.OrderToResponse(item)})
}

func (c *EntitlementController) ListOrders(ctx echo.Context) error {
	req, err := types.NewUserQueryRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.orderService.ListOrders(ctx.Request().Context(), req.UserID, req.Limit, req.Offset)
	if err != nil {
		c.logger.WithError(err).Error("List orders failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.ListOrdersResponse{Orders: mapper.OrdersToResponse(items)})
}

func (c *EntitlementController) CancelOrder(ctx echo.Context) error {
	req, err := types.NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.orderService.Cancel(ctx.Request().Context(), req.UserID, req.OrderNo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrAlreadyTerminal):
			return c.writeError(ctx, http.StatusConflict, "order is no longer pending")
		default:
			c.logger.WithError(err).Error("Cancel order failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &dto.OrderEnvelopeResponse{Order: mapper.OrderToResponse(item)})
}

func (c *EntitlementController) PaymentCallback(ctx echo.Context) error {
	form, err := types.NewCallbackFormFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.entitlementService.HandleCallback(ctx.Request().Context(), form); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature), errors.Is(err, service.ErrReplayDetected):
			return c.writeError(ctx, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrExpired):
			return c.writeError(ctx, http.StatusForbidden, "callback signature expired")
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrAlreadyTerminal):
			return c.writeError(ctx, http.StatusConflict, "order already settled")
		case errors.Is(err, service.ErrAmountMismatch), errors.Is(err, service.ErrInvalidCallback):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Payment callback failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &dto.MessageResponse{Message: "Callback processed successfully"})
}

func (c *EntitlementController) GetBalance(ctx echo.Context) error {
	req, err := types.NewUserQueryRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	balance, err := c.pointsService.Balance(ctx.Request().Context(), req.UserID)
	if err != nil {
		c.logger.WithError(err).Error("Get balance failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.BalanceResponse{UserID: req.UserID, Balance: balance})
}

func (c *EntitlementController) GetPointsHistory(ctx echo.Context) error {
	req, err := types.NewUserQueryRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.pointsService.History(ctx.Request().Context(), req.UserID, req.Limit, req.Offset)
	if err != nil {
		c.logger.WithError(err).Error("Get points history failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.PointsHistoryResponse{
		Transactions: mapper.TransactionsToResponse(items),
	})
}

func (c *EntitlementController) SpendPoints(ctx echo.Context) error {
	req, err := types.NewSpendPointsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	refType, refID := req.Reference()
	txn, err := c.pointsService.Debit(
		ctx.Request().Context(),
		req.UserID,
		req.Amount,
		req.Source,
		req.Description,
		refType,
		refID,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.writeError(ctx, http.StatusConflict, "insufficient points balance")
		default:
			c.logger.WithError(err).Error("Spend points failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &dto.SpendPointsResponse{
		Transaction: mapper.TransactionToResponse(txn),
	})
}

func (c *EntitlementController) ListTiers(ctx echo.Context) error {
	items, err := c.subscriptionService.ListTiers(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("List tiers failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.ListTiersResponse{Tiers: mapper.TiersToResponse(items)})
}

func (c *EntitlementController) GetCurrentSubscription(ctx echo.Context) error {
	req, err := types.NewUserQueryRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tier, err := c.subscriptionService.CurrentTier(ctx.Request().Context(), req.UserID)
	if err != nil {
		c.logger.WithError(err).Error("Get current tier failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	resp := &dto.CurrentSubscriptionResponse{Tier: mapper.TierToResponse(tier)}

	sub, err := c.subscriptionService.Current(ctx.Request().Context(), req.UserID)
	switch {
	case err == nil:
		mapped := mapper.SubscriptionToResponse(sub)
		resp.Subscription = &mapped
	case errors.Is(err, service.ErrNoActiveSub):
		// Free tier, nothing else to attach.
	default:
		c.logger.WithError(err).Error("Get current subscription failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *EntitlementController) CancelSubscription(ctx echo.Context) error {
	req, err := types.NewCancelSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.Cancel(ctx.Request().Context(), req.UserID, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSub) {
			return c.writeError(ctx, http.StatusNotFound, "no active subscription")
		}
		c.logger.WithError(err).Error("Cancel subscription failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.SubscriptionEnvelopeResponse{
		Subscription: mapper.SubscriptionToResponse(item),
	})
}

func (c *EntitlementController) ResumeSubscription(ctx echo.Context) error {
	req, err := types.NewResumeSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.Resume(ctx.Request().Context(), req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSub) {
			return c.writeError(ctx, http.StatusNotFound, "no active subscription")
		}
		c.logger.WithError(err).Error("Resume subscription failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &dto.SubscriptionEnvelopeResponse{
		Subscription: mapper.SubscriptionToResponse(item),
	})
}

func (c *EntitlementController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &dto.ErrorResponse{Error: message})
}
