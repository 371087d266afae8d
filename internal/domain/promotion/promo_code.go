package promotion

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// DiscountKind is how a promo code reduces the cart price
type DiscountKind string

const (
	DiscountPercentage   DiscountKind = "percentage"
	DiscountFixed        DiscountKind = "fixed"
	DiscountBuyXGetYFree DiscountKind = "buy_x_get_y_free"
)

// IsValid reports whether k is a known discount kind
func (k DiscountKind) IsValid() bool {
	switch k {
	case DiscountPercentage, DiscountFixed, DiscountBuyXGetYFree:
		return true
	}
	return false
}

// RejectReason explains why a promo code could not be applied
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectUnknown      RejectReason = "unknown"
	RejectInactive     RejectReason = "inactive"
	RejectExpired      RejectReason = "expired"
	RejectBelowMinimum RejectReason = "below_minimum"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{1,32}$`)

var hundred = decimal.NewFromInt(100)

// PromoCode is a discount rule that can be attached to a cart.
// A zero MinOrderAmount means no minimum, a zero MaxDiscount means no cap.
type PromoCode struct {
	shared.BaseEntity
	Code           string
	Description    string
	Kind           DiscountKind
	Value          decimal.Decimal
	BuyQuantity    int
	GetQuantity    int
	MinOrderAmount decimal.Decimal
	MaxDiscount    decimal.Decimal
	Active         bool
	ExpiresAt      *time.Time
}

// NormalizeCode returns the canonical (upper-case, trimmed) form of a code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPercentagePromo creates an active promo taking value percent off the subtotal
func NewPercentagePromo(code string, value decimal.Decimal) (*PromoCode, error) {
	return newPromoCode(code, DiscountPercentage, value, 0, 0)
}

// NewFixedPromo creates an active promo taking a fixed amount off the subtotal
func NewFixedPromo(code string, value decimal.Decimal) (*PromoCode, error) {
	return newPromoCode(code, DiscountFixed, value, 0, 0)
}

// NewBuyXGetYPromo creates an active promo giving get units free for every buy units purchased
func NewBuyXGetYPromo(code string, buy, get int) (*PromoCode, error) {
	return newPromoCode(code, DiscountBuyXGetYFree, decimal.Zero, buy, get)
}

// NewPromoCode creates a promo of any kind. Value is ignored for buy_x_get_y_free.
func NewPromoCode(code string, kind DiscountKind, value decimal.Decimal, buy, get int) (*PromoCode, error) {
	return newPromoCode(code, kind, value, buy, get)
}

func newPromoCode(code string, kind DiscountKind, value decimal.Decimal, buy, get int) (*PromoCode, error) {
	p := &PromoCode{
		BaseEntity:     shared.NewBaseEntity(),
		Code:           NormalizeCode(code),
		Kind:           kind,
		Value:          value,
		BuyQuantity:    buy,
		GetQuantity:    get,
		MinOrderAmount: decimal.Zero,
		MaxDiscount:    decimal.Zero,
		Active:         true,
	}
	if kind == DiscountBuyXGetYFree {
		p.Value = decimal.Zero
	} else {
		p.BuyQuantity = 0
		p.GetQuantity = 0
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the promo's invariants
func (p *PromoCode) Validate() error {
	if p.Code == "" {
		return shared.NewDomainError("INVALID_CODE", "Promo code cannot be empty")
	}
	if !codePattern.MatchString(p.Code) {
		return shared.NewDomainError("INVALID_CODE", "Promo code can only contain letters, numbers, underscores, and hyphens (max 32)")
	}
	switch p.Kind {
	case DiscountPercentage:
		if !p.Value.IsPositive() || p.Value.GreaterThan(hundred) {
			return shared.NewDomainError("INVALID_VALUE", "Percentage must be greater than 0 and at most 100")
		}
	case DiscountFixed:
		if !p.Value.IsPositive() {
			return shared.NewDomainError("INVALID_VALUE", "Fixed discount must be greater than 0")
		}
	case DiscountBuyXGetYFree:
		if p.BuyQuantity < 1 || p.GetQuantity < 1 {
			return shared.NewDomainError("INVALID_VALUE", "Buy and get quantities must be at least 1")
		}
	default:
		return shared.NewDomainError("INVALID_KIND", fmt.Sprintf("Unknown discount kind %q", p.Kind))
	}
	if p.MinOrderAmount.IsNegative() {
		return shared.NewDomainError("INVALID_MIN_ORDER", "Minimum order amount cannot be negative")
	}
	if p.MaxDiscount.IsNegative() {
		return shared.NewDomainError("INVALID_MAX_DISCOUNT", "Maximum discount cannot be negative")
	}
	return nil
}

// SetMinOrderAmount sets the subtotal required before the promo applies
func (p *PromoCode) SetMinOrderAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_MIN_ORDER", "Minimum order amount cannot be negative")
	}
	p.MinOrderAmount = amount
	p.Touch()
	return nil
}

// SetMaxDiscount caps the discount of a percentage promo
func (p *PromoCode) SetMaxDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_MAX_DISCOUNT", "Maximum discount cannot be negative")
	}
	p.MaxDiscount = amount
	p.Touch()
	return nil
}

// SetExpiresAt sets or clears the expiry time
func (p *PromoCode) SetExpiresAt(expiresAt *time.Time) {
	p.ExpiresAt = expiresAt
	p.Touch()
}

// SetDescription sets the display text
func (p *PromoCode) SetDescription(description string) {
	p.Description = description
	p.Touch()
}

// Activate enables the promo
func (p *PromoCode) Activate() {
	p.Active = true
	p.Touch()
}

// Deactivate disables the promo; carts holding it stop receiving its discount
func (p *PromoCode) Deactivate() {
	p.Active = false
	p.Touch()
}

// IsExpired reports whether the promo expired at or before now
func (p *PromoCode) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// IsUsable reports whether the promo is active and not expired
func (p *PromoCode) IsUsable(now time.Time) bool {
	return p.Active && !p.IsExpired(now)
}

// HasMinimum reports whether the promo requires a minimum order amount
func (p *PromoCode) HasMinimum() bool {
	return p.MinOrderAmount.IsPositive()
}

// HasCap reports whether the discount is capped
func (p *PromoCode) HasCap() bool {
	return p.MaxDiscount.IsPositive()
}

// Check returns RejectNone when the promo may be applied to a cart with the
// given subtotal, otherwise the reason it may not.
func (p *PromoCode) Check(subtotal decimal.Decimal, now time.Time) RejectReason {
	if p == nil {
		return RejectUnknown
	}
	if !p.Active {
		return RejectInactive
	}
	if p.IsExpired(now) {
		return RejectExpired
	}
	if p.HasMinimum() && subtotal.LessThan(p.MinOrderAmount) {
		return RejectBelowMinimum
	}
	return RejectNone
}

// Message returns a customer facing explanation for the rejection
func (r RejectReason) Message() string {
	switch r {
	case RejectUnknown:
		return "Promo code not found"
	case RejectInactive:
		return "Promo code is no longer active"
	case RejectExpired:
		return "Promo code has expired"
	case RejectBelowMinimum:
		return "Order total is below the promo code minimum"
	}
	return ""
}
