package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// Cart holds one session's line items, checkout selection and active promo.
// Totals are recomputed on every mutation; each mutation builds the next
// item list and selection before swapping them in.
type Cart struct {
	sessionID string
	items     []LineItem
	selected  map[ItemKey]struct{}
	promo     *promotion.PromoCode
	totals    Totals
	policy    PricingPolicy
	clock     func() time.Time
	updatedAt time.Time
}

// Option configures a Cart
type Option func(*Cart)

// WithClock overrides the time source used for promo expiry
func WithClock(clock func() time.Time) Option {
	return func(c *Cart) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCart creates an empty cart for a session
func NewCart(sessionID string, policy PricingPolicy, opts ...Option) *Cart {
	c := &Cart{
		sessionID: sessionID,
		items:     []LineItem{},
		selected:  map[ItemKey]struct{}{},
		policy:    policy,
		clock:     time.Now,
		totals:    ZeroTotals(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.updatedAt = c.clock()
	return c
}

// PromoOutcome is the result of applying a promo code
type PromoOutcome struct {
	Applied bool
	Code    string
	Reason  promotion.RejectReason
}

// AddItem adds quantity units of a product variant. Quantities below 1 add a
// single unit. An existing line with the same key is incremented, a new line
// is appended and selected for checkout.
func (c *Cart) AddItem(product *catalog.Product, quantity int, size, color string) (LineItem, error) {
	if product == nil {
		return LineItem{}, fmt.Errorf("%w: product is required", shared.ErrInvalidInput)
	}
	if quantity <= 0 {
		quantity = 1
	}

	key := NewItemKey(product.ID, size, color)
	items := c.copyItems()
	selected := c.copySelection()

	if idx := indexOf(items, key); idx >= 0 {
		items[idx] = items[idx].withQuantity(items[idx].Quantity + quantity)
		c.replace(items, selected, c.promo)
		return items[idx], nil
	}

	item, err := NewLineItem(product.ID, product.Name, product.Price, quantity, size, color)
	if err != nil {
		return LineItem{}, err
	}
	items = append(items, item)
	selected[item.Key()] = struct{}{}
	c.replace(items, selected, c.promo)
	return item, nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line. Unknown keys are ignored.
func (c *Cart) UpdateQuantity(key ItemKey, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(key)
		return
	}
	idx := indexOf(c.items, key)
	if idx < 0 {
		return
	}
	items := c.copyItems()
	items[idx] = items[idx].withQuantity(quantity)
	c.replace(items, c.copySelection(), c.promo)
}

// RemoveItem deletes a line and its selection mark. Unknown keys are ignored.
func (c *Cart) RemoveItem(key ItemKey) {
	idx := indexOf(c.items, key)
	if idx < 0 {
		return
	}
	items := make([]LineItem, 0, len(c.items)-1)
	items = append(items, c.items[:idx]...)
	items = append(items, c.items[idx+1:]...)

	selected := c.copySelection()
	delete(selected, key)
	c.replace(items, selected, c.promo)
}

// ClearCart removes every item, the selection and the active promo
func (c *Cart) ClearCart() {
	c.replace([]LineItem{}, map[ItemKey]struct{}{}, nil)
}

// ApplyPromoCode looks the code up and applies it. A rejected code leaves
// the cart untouched. Errors are lookup failures, not rejections.
func (c *Cart) ApplyPromoCode(ctx context.Context, code string, promos promotion.Catalog) (PromoOutcome, error) {
	normalized := promotion.NormalizeCode(code)
	if normalized == "" {
		return PromoOutcome{Code: normalized, Reason: promotion.RejectUnknown}, nil
	}

	promo, err := promos.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return PromoOutcome{Code: normalized, Reason: promotion.RejectUnknown}, nil
		}
		return PromoOutcome{}, fmt.Errorf("lookup promo code %s: %w", normalized, err)
	}
	return c.ApplyPromo(promo), nil
}

// ApplyPromo attaches an already resolved promo, replacing any active one
func (c *Cart) ApplyPromo(promo *promotion.PromoCode) PromoOutcome {
	if promo == nil {
		return PromoOutcome{Reason: promotion.RejectUnknown}
	}
	if reason := promo.Check(c.totals.Subtotal, c.clock()); reason != promotion.RejectNone {
		return PromoOutcome{Code: promo.Code, Reason: reason}
	}
	c.replace(c.copyItems(), c.copySelection(), promo)
	return PromoOutcome{Applied: true, Code: promo.Code}
}

// RemovePromoCode detaches the active promo
func (c *Cart) RemovePromoCode() {
	c.replace(c.copyItems(), c.copySelection(), nil)
}

// ToggleItemSelection flips the checkout mark of a line. Unknown keys are ignored.
func (c *Cart) ToggleItemSelection(key ItemKey) {
	if indexOf(c.items, key) < 0 {
		return
	}
	selected := c.copySelection()
	if _, ok := selected[key]; ok {
		delete(selected, key)
	} else {
		selected[key] = struct{}{}
	}
	c.replace(c.copyItems(), selected, c.promo)
}

// SelectAllItems marks every line for checkout
func (c *Cart) SelectAllItems() {
	selected := make(map[ItemKey]struct{}, len(c.items))
	for _, item := range c.items {
		selected[item.Key()] = struct{}{}
	}
	c.replace(c.copyItems(), selected, c.promo)
}

// DeselectAllItems clears the checkout selection
func (c *Cart) DeselectAllItems() {
	c.replace(c.copyItems(), map[ItemKey]struct{}{}, c.promo)
}

// SessionID returns the owning session
func (c *Cart) SessionID() string { return c.sessionID }

// Items returns a copy of the line items in insertion order
func (c *Cart) Items() []LineItem { return c.copyItems() }

// Item returns the line with the given key
func (c *Cart) Item(key ItemKey) (LineItem, bool) {
	idx := indexOf(c.items, key)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.items[idx], true
}

// IsSelected reports whether the line is marked for checkout
func (c *Cart) IsSelected(key ItemKey) bool {
	_, ok := c.selected[key]
	return ok
}

// SelectedItems returns the lines marked for checkout in insertion order
func (c *Cart) SelectedItems() []LineItem {
	result := make([]LineItem, 0, len(c.selected))
	for _, item := range c.items {
		if _, ok := c.selected[item.Key()]; ok {
			result = append(result, item)
		}
	}
	return result
}

// Totals returns the current price breakdown
func (c *Cart) Totals() Totals { return c.totals }

// Subtotal returns the sum of line totals
func (c *Cart) Subtotal() decimal.Decimal { return c.totals.Subtotal }

// Tax returns the tax amount
func (c *Cart) Tax() decimal.Decimal { return c.totals.Tax }

// Shipping returns the shipping fee
func (c *Cart) Shipping() decimal.Decimal { return c.totals.Shipping }

// Discount returns the promo discount
func (c *Cart) Discount() decimal.Decimal { return c.totals.Discount }

// Total returns the amount payable
func (c *Cart) Total() decimal.Decimal { return c.totals.Total }

// Promo returns the active promo, if any
func (c *Cart) Promo() *promotion.PromoCode { return c.promo }

// PromoCode returns the active promo code or an empty string
func (c *Cart) PromoCode() string {
	if c.promo == nil {
		return ""
	}
	return c.promo.Code
}

// TotalItems returns the number of units across all lines
func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// ProductUnits returns the units of a product across all of its size and
// color lines
func (c *Cart) ProductUnits(productID uuid.UUID) int {
	n := 0
	for _, item := range c.items {
		if item.ProductID == productID {
			n += item.Quantity
		}
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// CanCheckout reports whether at least one line is selected
func (c *Cart) CanCheckout() bool { return len(c.selected) > 0 }

// Policy returns the pricing policy
func (c *Cart) Policy() PricingPolicy { return c.policy }

// UpdatedAt returns the time of the last mutation
func (c *Cart) UpdatedAt() time.Time { return c.updatedAt }

// Reprice recomputes totals, e.g. after the active promo was deactivated
func (c *Cart) Reprice() {
	c.totals = ComputeTotals(c.items, c.promo, c.policy, c.clock())
}

func (c *Cart) replace(items []LineItem, selected map[ItemKey]struct{}, promo *promotion.PromoCode) {
	now := c.clock()
	totals := ComputeTotals(items, promo, c.policy, now)

	c.items = items
	c.selected = selected
	c.promo = promo
	c.totals = totals
	c.updatedAt = now
}

func (c *Cart) copyItems() []LineItem {
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Cart) copySelection() map[ItemKey]struct{} {
	selected := make(map[ItemKey]struct{}, len(c.selected))
	for k := range c.selected {
		selected[k] = struct{}{}
	}
	return selected
}

func indexOf(items []LineItem, key ItemKey) int {
	for i, item := range items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}
