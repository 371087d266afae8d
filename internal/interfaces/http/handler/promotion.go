package handler

import (
	"github.com/gin-gonic/gin"
	promoapp "github.com/storefront/backend/internal/application/promotion"
	"github.com/storefront/backend/internal/application/promotion/dto"
)

// PromotionHandler handles promo code administration
type PromotionHandler struct {
	BaseHandler
	promoService *promoapp.PromoService
}

// NewPromotionHandler creates a new PromotionHandler
func NewPromotionHandler(promoService *promoapp.PromoService) *PromotionHandler {
	return &PromotionHandler{promoService: promoService}
}

// ListPromos returns a page of promo codes
// GET /promotions?search=&kind=&active=&page=&page_size=
func (h *PromotionHandler) ListPromos(c *gin.Context) {
	var filter dto.PromoListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.promoService.ListPromos(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// CreatePromo adds a promo code
// POST /promotions
func (h *PromotionHandler) CreatePromo(c *gin.Context) {
	var req dto.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.promoService.CreatePromo(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetPromo returns one promo code
// GET /promotions/:code
func (h *PromotionHandler) GetPromo(c *gin.Context) {
	result, err := h.promoService.GetPromo(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SetStatus activates or deactivates a promo code
// PATCH /promotions/:code/status
func (h *PromotionHandler) SetStatus(c *gin.Context) {
	var req dto.SetPromoStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.promoService.SetActive(c.Request.Context(), c.Param("code"), req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
