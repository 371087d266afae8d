package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPromoCodeRepository implements PromoCodeRepository using GORM.
// It is the promo catalog used when promo codes are managed in the database.
type GormPromoCodeRepository struct {
	db *gorm.DB
}

// NewGormPromoCodeRepository creates a new GormPromoCodeRepository
func NewGormPromoCodeRepository(db *gorm.DB) *GormPromoCodeRepository {
	return &GormPromoCodeRepository{db: db}
}

// FindByCode finds a promo code, ignoring case and surrounding whitespace
func (r *GormPromoCodeRepository) FindByCode(ctx context.Context, code string) (*promotion.PromoCode, error) {
	normalized := promotion.NormalizeCode(code)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty promo code", shared.ErrNotFound)
	}

	var model models.PromoCodeModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", normalized).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all promo codes matching the filter
func (r *GormPromoCodeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]promotion.PromoCode, error) {
	var rows []models.PromoCodeModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PromoCodeModel{}), filter)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	promos := make([]promotion.PromoCode, len(rows))
	for i := range rows {
		promos[i] = *rows[i].ToDomain()
	}
	return promos, nil
}

// Count counts promo codes matching the filter
func (r *GormPromoCodeRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.PromoCodeModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a promo code
func (r *GormPromoCodeRepository) Save(ctx context.Context, promo *promotion.PromoCode) error {
	return r.db.WithContext(ctx).Save(models.PromoCodeModelFromDomain(promo)).Error
}

// ExistsByCode checks if a promo code exists
func (r *GormPromoCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PromoCodeModel{}).
		Where("code = ?", promotion.NormalizeCode(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormPromoCodeRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Paged() {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if filter.OrderBy == "" {
		return query.Order("code ASC")
	}
	return query.Order(OrderClause(filter.OrderBy, filter.OrderDir, PromoCodeSortFields, "code"))
}

func (r *GormPromoCodeRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("code LIKE ?", "%"+promotion.NormalizeCode(filter.Search)+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "kind":
			query = query.Where("kind = ?", value)
		case "active":
			query = query.Where("active = ?", value)
		}
	}

	return query
}

// Ensure GormPromoCodeRepository implements PromoCodeRepository
var _ promotion.PromoCodeRepository = (*GormPromoCodeRepository)(nil)
