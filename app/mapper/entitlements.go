package mapper

import (
	"time"

	"github.com/lumeo-sites/ms-go-entitlements/app/dto"
	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

func OrderToResponse(item *entity.PaymentOrder) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:               item.ID,
		OrderNo:          item.OrderNo,
		UserID:           item.UserID,
		AmountMinorUnits: item.AmountMinorUnits,
		ProductType:      string(item.ProductType),
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		Status:           string(item.Status),
		TradeNo:          item.TradeNo,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:        item.ExpiresAt.UTC().Format(time.RFC3339),
		PaidAt:           formatTime(item.PaidAt),
	}
	if item.Period != nil {
		resp.Period = string(*item.Period)
	}
	return resp
}

func OrdersToResponse(items []*entity.PaymentOrder) []dto.OrderResponse {
	result := make([]dto.OrderResponse, 0, len(items))
	for _, item := range items {
		result = append(result, OrderToResponse(item))
	}
	return result
}

func TransactionToResponse(item *entity.PointsTransaction) dto.PointsTransactionResponse {
	return dto.PointsTransactionResponse{
		ID:            item.ID,
		UserID:        item.UserID,
		Amount:        item.Amount,
		Type:          string(item.Type),
		Source:        item.Source,
		Description:   item.Description,
		BalanceBefore: item.BalanceBefore,
		BalanceAfter:  item.BalanceAfter,
		ReferenceType: item.ReferenceType,
		ReferenceID:   item.ReferenceID,
		CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func TransactionsToResponse(items []*entity.PointsTransaction) []dto.PointsTransactionResponse {
	result := make([]dto.PointsTransactionResponse, 0, len(items))
	for _, item := range items {
		result = append(result, TransactionToResponse(item))
	}
	return result
}

func SubscriptionToResponse(item *entity.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:           item.ID,
		UserID:       item.UserID,
		TierID:       item.TierID,
		Period:       string(item.Period),
		Status:       string(item.Status),
		StartDate:    item.StartDate.UTC().Format(time.RFC3339),
		EndDate:      item.EndDate.UTC().Format(time.RFC3339),
		AutoRenew:    item.AutoRenew,
		CancelledAt:  formatTime(item.CancelledAt),
		CancelReason: item.CancelReason,
	}
}

func TierToResponse(item *entity.MembershipTier) dto.TierResponse {
	return dto.TierResponse{
		ID:   item.ID,
		Name: item.Name,
		Rank: item.Rank,
		Privileges: dto.PrivilegesResponse{
			AdFree:             item.Privileges.AdFree,
			HiResGallery:       item.Privileges.HiResGallery,
			ExclusiveArticles:  item.Privileges.ExclusiveArticles,
			MonthlyBonusPoints: item.Privileges.MonthlyBonusPoints,
			GalleryQuotaMB:     item.Privileges.GalleryQuotaMB,
		},
	}
}

func TiersToResponse(items []*entity.MembershipTier) []dto.TierResponse {
	result := make([]dto.TierResponse, 0, len(items))
	for _, item := range items {
		result = append(result, TierToResponse(item))
	}
	return result
}

func formatTime(v *time.Time) *string {
	if v == nil {
		return nil
	}
	formatted := v.UTC().Format(time.RFC3339)
	return &formatted
}
