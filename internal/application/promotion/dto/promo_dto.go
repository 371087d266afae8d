package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// CreatePromoRequest represents a request to add a promo code.
// Value is used by percentage and fixed promos, the quantities by
// buy_x_get_y_free promos.
type CreatePromoRequest struct {
	Code           string           `json:"code" binding:"required,promo_code"`
	Description    string           `json:"description" binding:"max=200"`
	Kind           string           `json:"kind" binding:"required,promo_kind"`
	Value          *decimal.Decimal `json:"value"`
	BuyQuantity    int              `json:"buy_quantity" binding:"min=0,max=100"`
	GetQuantity    int              `json:"get_quantity" binding:"min=0,max=100"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount"`
	MaxDiscount    *decimal.Decimal `json:"max_discount"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	Inactive       bool             `json:"inactive"`
}

// SetPromoStatusRequest activates or deactivates a promo code
type SetPromoStatusRequest struct {
	Active bool `json:"active"`
}

// PromoListFilter represents filter options for the promo list
type PromoListFilter struct {
	Search   string `form:"search"`
	Kind     string `form:"kind" binding:"omitempty,promo_kind"`
	Active   *bool  `form:"active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PromoResponse represents a promo code in API responses
type PromoResponse struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	Kind           string          `json:"kind"`
	Value          decimal.Decimal `json:"value"`
	BuyQuantity    int             `json:"buy_quantity,omitempty"`
	GetQuantity    int             `json:"get_quantity,omitempty"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxDiscount    decimal.Decimal `json:"max_discount"`
	Active         bool            `json:"active"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	Expired        bool            `json:"expired"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PromoListResponse is a page of promo codes
type PromoListResponse = shared.Paginated[PromoResponse]

// ToPromoResponse converts a domain promo code to a response DTO.
// now decides the Expired flag.
func ToPromoResponse(p *promotion.PromoCode, now time.Time) *PromoResponse {
	return &PromoResponse{
		ID:             p.ID,
		Code:           p.Code,
		Description:    p.Description,
		Kind:           string(p.Kind),
		Value:          p.Value,
		BuyQuantity:    p.BuyQuantity,
		GetQuantity:    p.GetQuantity,
		MinOrderAmount: p.MinOrderAmount,
		MaxDiscount:    p.MaxDiscount,
		Active:         p.Active,
		ExpiresAt:      p.ExpiresAt,
		Expired:        p.IsExpired(now),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToPromoListResponse converts a page of promo codes
func ToPromoListResponse(promos []promotion.PromoCode, total int64, page, pageSize int, now time.Time) *PromoListResponse {
	items := make([]PromoResponse, len(promos))
	for i := range promos {
		items[i] = *ToPromoResponse(&promos[i], now)
	}
	resp := shared.NewPaginated(items, total, page, pageSize)
	return &resp
}
