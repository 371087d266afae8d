package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
)

// AddItemRequest represents a request to add a product to the cart.
// A quantity below 1 adds a single unit.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"max=999"`
	Size      string    `json:"size" binding:"max=32"`
	Color     string    `json:"color" binding:"max=32"`
}

// ItemKeyRequest identifies a cart line
type ItemKeyRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Size      string    `json:"size" binding:"max=32"`
	Color     string    `json:"color" binding:"max=32"`
}

// Key converts the request into a domain item key
func (r ItemKeyRequest) Key() cart.ItemKey {
	return cart.NewItemKey(r.ProductID, r.Size, r.Color)
}

// UpdateQuantityRequest sets the quantity of a cart line. Zero or less removes it.
type UpdateQuantityRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Size      string    `json:"size" binding:"max=32"`
	Color     string    `json:"color" binding:"max=32"`
	Quantity  int       `json:"quantity" binding:"max=999"`
}

// Key converts the request into a domain item key
func (r UpdateQuantityRequest) Key() cart.ItemKey {
	return cart.NewItemKey(r.ProductID, r.Size, r.Color)
}

// ApplyPromoRequest represents a promo code entered by the shopper
type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required,max=32"`
}

// CartItemResponse represents a cart line in API responses
type CartItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
	Selected  bool            `json:"selected"`
}

// TotalsResponse is the price breakdown of a cart
type TotalsResponse struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	SessionID     string             `json:"session_id"`
	Items         []CartItemResponse `json:"items"`
	Totals        TotalsResponse     `json:"totals"`
	PromoCode     string             `json:"promo_code,omitempty"`
	TotalItems    int                `json:"total_items"`
	SelectedCount int                `json:"selected_count"`
	CanCheckout   bool               `json:"can_checkout"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ApplyPromoResponse reports whether a promo code was accepted.
// A rejected code is not an error: Applied is false and Reason says why.
type ApplyPromoResponse struct {
	Applied bool          `json:"applied"`
	Code    string        `json:"code"`
	Reason  string        `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
	Cart    *CartResponse `json:"cart"`
}

// CheckoutQuote is handed to the checkout collaborator. It carries the
// selected lines and the totals of the whole cart.
type CheckoutQuote struct {
	SessionID string             `json:"session_id"`
	Items     []CartItemResponse `json:"items"`
	Units     int                `json:"units"`
	Totals    TotalsResponse     `json:"totals"`
	PromoCode string             `json:"promo_code,omitempty"`
	QuotedAt  time.Time          `json:"quoted_at"`
}

// ToCartResponse converts a domain cart to a response DTO
func ToCartResponse(c *cart.Cart) *CartResponse {
	items := c.Items()
	resp := &CartResponse{
		SessionID:   c.SessionID(),
		Items:       make([]CartItemResponse, 0, len(items)),
		Totals:      ToTotalsResponse(c.Totals()),
		PromoCode:   c.PromoCode(),
		TotalItems:  c.TotalItems(),
		CanCheckout: c.CanCheckout(),
		UpdatedAt:   c.UpdatedAt(),
	}
	for _, item := range items {
		selected := c.IsSelected(item.Key())
		if selected {
			resp.SelectedCount++
		}
		resp.Items = append(resp.Items, toCartItemResponse(item, selected, c.Policy().Precision))
	}
	return resp
}

// ToTotalsResponse converts domain totals to a response DTO
func ToTotalsResponse(t cart.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal: t.Subtotal,
		Tax:      t.Tax,
		Shipping: t.Shipping,
		Discount: t.Discount,
		Total:    t.Total,
	}
}

// toCartItemResponse rounds the line total the same way the subtotal is rounded
func toCartItemResponse(item cart.LineItem, selected bool, precision int32) CartItemResponse {
	return CartItemResponse{
		ProductID: item.ProductID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  item.Quantity,
		Size:      item.Size,
		Color:     item.Color,
		LineTotal: item.LineTotal().Round(precision),
		Selected:  selected,
	}
}

func toCheckoutQuote(c *cart.Cart, quotedAt time.Time) *CheckoutQuote {
	selected := c.SelectedItems()
	quote := &CheckoutQuote{
		SessionID: c.SessionID(),
		Items:     make([]CartItemResponse, 0, len(selected)),
		Totals:    ToTotalsResponse(c.Totals()),
		PromoCode: c.PromoCode(),
		QuotedAt:  quotedAt,
	}
	for _, item := range selected {
		quote.Units += item.Quantity
		quote.Items = append(quote.Items, toCartItemResponse(item, true, c.Policy().Precision))
	}
	return quote
}
