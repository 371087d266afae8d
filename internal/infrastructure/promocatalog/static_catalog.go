// Package promocatalog provides the configuration-seeded promo code catalog.
package promocatalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// StaticCatalog is an in-memory promo table. Changes made through Save live
// only as long as the process.
type StaticCatalog struct {
	mu     sync.RWMutex
	promos map[string]promotion.PromoCode
}

// NewStaticCatalog builds a catalog from configured seeds.
// An invalid or duplicate seed fails the whole catalog.
func NewStaticCatalog(seeds []config.PromoSeed) (*StaticCatalog, error) {
	c := &StaticCatalog{promos: make(map[string]promotion.PromoCode, len(seeds))}
	for i, seed := range seeds {
		promo, err := PromoFromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("promotion.codes[%d]: %w", i, err)
		}
		if _, exists := c.promos[promo.Code]; exists {
			return nil, fmt.Errorf("%w: promo code '%s' configured twice", shared.ErrAlreadyExists, promo.Code)
		}
		c.promos[promo.Code] = *promo
	}
	return c, nil
}

// PromoFromSeed converts a configuration entry into a validated promo code
func PromoFromSeed(seed config.PromoSeed) (*promotion.PromoCode, error) {
	value, err := parseAmount(seed.Value, "value")
	if err != nil {
		return nil, err
	}
	promo, err := promotion.NewPromoCode(seed.Code, promotion.DiscountKind(seed.Kind), value, seed.BuyQuantity, seed.GetQuantity)
	if err != nil {
		return nil, err
	}
	promo.Description = seed.Description

	minOrder, err := parseAmount(seed.MinOrderAmount, "min_order_amount")
	if err != nil {
		return nil, err
	}
	if err := promo.SetMinOrderAmount(minOrder); err != nil {
		return nil, err
	}

	maxDiscount, err := parseAmount(seed.MaxDiscount, "max_discount")
	if err != nil {
		return nil, err
	}
	if err := promo.SetMaxDiscount(maxDiscount); err != nil {
		return nil, err
	}

	if seed.Inactive {
		promo.Deactivate()
	}
	return promo, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", shared.ErrInvalidInput, field, raw)
	}
	return d, nil
}

// FindByCode returns a copy of the promo registered under code
func (c *StaticCatalog) FindByCode(ctx context.Context, code string) (*promotion.PromoCode, error) {
	normalized := promotion.NormalizeCode(code)

	c.mu.RLock()
	defer c.mu.RUnlock()

	promo, exists := c.promos[normalized]
	if !exists {
		return nil, fmt.Errorf("%w: promo code '%s' not found", shared.ErrNotFound, normalized)
	}
	return &promo, nil
}

// FindAll lists promos ordered by code. Supports the "kind" and "active"
// filters, code search and pagination.
func (c *StaticCatalog) FindAll(ctx context.Context, filter shared.Filter) ([]promotion.PromoCode, error) {
	matched := c.match(filter)
	start, end := filter.Window(len(matched))
	return matched[start:end], nil
}

// Count counts promos matching the filter
func (c *StaticCatalog) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return int64(len(c.match(filter))), nil
}

// Save adds or replaces a promo
func (c *StaticCatalog) Save(ctx context.Context, promo *promotion.PromoCode) error {
	if promo == nil {
		return fmt.Errorf("%w: promo code is nil", shared.ErrInvalidInput)
	}
	if err := promo.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.promos[promo.Code] = *promo
	return nil
}

// ExistsByCode checks if a promo code is registered
func (c *StaticCatalog) ExistsByCode(ctx context.Context, code string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.promos[promotion.NormalizeCode(code)]
	return exists, nil
}

// Codes returns the registered codes in order
func (c *StaticCatalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	codes := make([]string, 0, len(c.promos))
	for code := range c.promos {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (c *StaticCatalog) match(filter shared.Filter) []promotion.PromoCode {
	search := promotion.NormalizeCode(filter.Search)

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]promotion.PromoCode, 0, len(c.promos))
	for _, promo := range c.promos {
		if search != "" && !strings.Contains(promo.Code, search) {
			continue
		}
		if kind, ok := filter.Filters["kind"]; ok && fmt.Sprint(kind) != string(promo.Kind) {
			continue
		}
		if active, ok := filter.Filters["active"].(bool); ok && active != promo.Active {
			continue
		}
		result = append(result, promo)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// Ensure StaticCatalog implements PromoCodeRepository
var _ promotion.PromoCodeRepository = (*StaticCatalog)(nil)
