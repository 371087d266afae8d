package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ItemKey identifies a line item. The same product with a different size or
// color is a different line.
type ItemKey struct {
	ProductID uuid.UUID `json:"product_id"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
}

// NewItemKey builds a key with trimmed selectors
func NewItemKey(productID uuid.UUID, size, color string) ItemKey {
	return ItemKey{
		ProductID: productID,
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
	}
}

// String renders the key as product/size/color
func (k ItemKey) String() string {
	return k.ProductID.String() + "/" + k.Size + "/" + k.Color
}

// LineItem is a product in the cart. UnitPrice is captured when the item is
// added and is never re-priced.
type LineItem struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Size      string
	Color     string
}

// NewLineItem creates a validated line item
func NewLineItem(productID uuid.UUID, name string, unitPrice decimal.Decimal, quantity int, size, color string) (LineItem, error) {
	item := LineItem{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
	}
	if err := item.validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

func (i LineItem) validate() error {
	if i.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if i.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if i.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return nil
}

// Key returns the item's identity
func (i LineItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// LineTotal returns unit price times quantity
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i LineItem) withQuantity(quantity int) LineItem {
	i.Quantity = quantity
	return i
}
