package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartHandler handles cart HTTP requests. Every route runs behind the
// CartSession middleware, which supplies the session id.
type CartHandler struct {
	BaseHandler
	cartService *cartapp.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *cartapp.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart returns the cart with its totals
// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	result, err := h.cartService.GetCart(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AddItem adds a product variant, merging with an existing line
// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartapp.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.cartService.AddItem(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// UpdateQuantity sets a line's quantity; zero or less removes the line
// PUT /cart/items/quantity
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req cartapp.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.cartService.UpdateQuantity(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RemoveItem removes the line identified in the body
// DELETE /cart/items
func (h *CartHandler) RemoveItem(c *gin.Context) {
	var req cartapp.ItemKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.cartService.RemoveItem(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ClearCart empties the cart
// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	h.respond(c, h.cartService.ClearCart)
}

// ApplyPromoCode attaches a promo code. A rejected code is a 200 with
// applied=false and the reason.
// POST /cart/promo
func (h *CartHandler) ApplyPromoCode(c *gin.Context) {
	var req cartapp.ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.cartService.ApplyPromoCode(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RemovePromoCode detaches the promo code
// DELETE /cart/promo
func (h *CartHandler) RemovePromoCode(c *gin.Context) {
	h.respond(c, h.cartService.RemovePromoCode)
}

// ToggleSelection flips the checkout selection of one line
// POST /cart/selection/toggle
func (h *CartHandler) ToggleSelection(c *gin.Context) {
	var req cartapp.ItemKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.cartService.ToggleSelection(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SelectAll selects every line
// POST /cart/selection/all
func (h *CartHandler) SelectAll(c *gin.Context) {
	h.respond(c, h.cartService.SelectAll)
}

// DeselectAll clears the selection
// DELETE /cart/selection
func (h *CartHandler) DeselectAll(c *gin.Context) {
	h.respond(c, h.cartService.DeselectAll)
}

// Checkout quotes the selected lines
// POST /cart/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	result, err := h.cartService.Checkout(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *CartHandler) respond(c *gin.Context, op func(ctx context.Context, sessionID string) (*cartapp.CartResponse, error)) {
	result, err := op(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
