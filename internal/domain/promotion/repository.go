package promotion

import (
	"context"

	"github.com/storefront/backend/internal/domain/shared"
)

// Catalog resolves promo codes for carts. Lookups are case-insensitive and
// return an error wrapping shared.ErrNotFound for unknown codes.
type Catalog interface {
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
}

// PromoCodeRepository defines the interface for promo code persistence
type PromoCodeRepository interface {
	Catalog

	// FindAll finds all promo codes matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]PromoCode, error)

	// Count counts promo codes matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a promo code
	Save(ctx context.Context, promo *PromoCode) error

	// ExistsByCode checks if a promo code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
