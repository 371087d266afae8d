package cart

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// Default pricing parameters
var (
	DefaultTaxRate               = decimal.NewFromFloat(0.18)
	DefaultFreeShippingThreshold = decimal.NewFromInt(500)
	DefaultShippingFee           = decimal.NewFromInt(50)
)

// DefaultPrecision is the number of decimal places monetary amounts are rounded to
const DefaultPrecision int32 = 2

// PricingPolicy holds the store-wide pricing parameters
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	Precision             int32
}

// DefaultPricingPolicy returns 18% tax, free shipping above 500 and a flat fee of 50
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               DefaultTaxRate,
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		ShippingFee:           DefaultShippingFee,
		Precision:             DefaultPrecision,
	}
}

// Validate checks the policy parameters
func (p PricingPolicy) Validate() error {
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be in [0, 1)")
	}
	if p.FreeShippingThreshold.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING_THRESHOLD", "Free shipping threshold cannot be negative")
	}
	if p.ShippingFee.IsNegative() {
		return shared.NewDomainError("INVALID_SHIPPING_FEE", "Shipping fee cannot be negative")
	}
	if p.Precision < 0 {
		return shared.NewDomainError("INVALID_PRECISION", "Precision cannot be negative")
	}
	return nil
}

// Totals is the derived price breakdown of a cart.
// Total always equals Subtotal + Tax + Shipping - Discount and is never negative.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ZeroTotals returns the totals of an empty cart
func ZeroTotals() Totals {
	return Totals{
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Shipping: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}
}

// ComputeTotals prices items with an optional promo.
// now decides promo expiry; the function has no other inputs or side effects.
func ComputeTotals(items []LineItem, promo *promotion.PromoCode, policy PricingPolicy, now time.Time) Totals {
	if len(items) == 0 {
		return ZeroTotals()
	}

	subtotal := Subtotal(items).Round(policy.Precision)
	discount := Discount(items, subtotal, promo, now).Round(policy.Precision)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	tax := subtotal.Sub(discount).Mul(policy.TaxRate).Round(policy.Precision)

	shipping := policy.ShippingFee.Round(policy.Precision)
	if subtotal.GreaterThan(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}

// Subtotal sums unit price times quantity over items
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Discount returns the promo's discount for items, clamped to [0, subtotal].
// Unusable promos and subtotals below the promo minimum yield zero.
func Discount(items []LineItem, subtotal decimal.Decimal, promo *promotion.PromoCode, now time.Time) decimal.Decimal {
	if promo == nil || promo.Check(subtotal, now) != promotion.RejectNone {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch promo.Kind {
	case promotion.DiscountPercentage:
		discount = subtotal.Mul(promo.Value).Div(decimal.NewFromInt(100))
		if promo.HasCap() && discount.GreaterThan(promo.MaxDiscount) {
			discount = promo.MaxDiscount
		}
	case promotion.DiscountFixed:
		discount = promo.Value
	case promotion.DiscountBuyXGetYFree:
		discount = freeUnitsValue(items, promo.BuyQuantity, promo.GetQuantity)
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}

// freeUnitsValue gives away get units per complete group of buy+get units,
// always choosing the most expensive units first.
func freeUnitsValue(items []LineItem, buy, get int) decimal.Decimal {
	groupSize := buy + get
	if buy < 1 || get < 1 {
		return decimal.Zero
	}

	totalQty := 0
	for _, item := range items {
		totalQty += item.Quantity
	}
	free := (totalQty / groupSize) * get
	if free == 0 {
		return decimal.Zero
	}

	sorted := make([]LineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnitPrice.GreaterThan(sorted[j].UnitPrice)
	})

	value := decimal.Zero
	for _, item := range sorted {
		if free == 0 {
			break
		}
		take := item.Quantity
		if take > free {
			take = free
		}
		value = value.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(take))))
		free -= take
	}
	return value
}
