package promotion

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/application/promotion/dto"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrPromoNotFound is returned when a promo code does not exist
var ErrPromoNotFound = shared.NewDomainError("PROMO_NOT_FOUND", "Promo code not found")

// PromoService manages the promo code table
type PromoService struct {
	promoRepo promotion.PromoCodeRepository
	logger    *zap.Logger
	clock     func() time.Time
}

// NewPromoService creates a new promo service
func NewPromoService(promoRepo promotion.PromoCodeRepository, logger *zap.Logger) *PromoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromoService{
		promoRepo: promoRepo,
		logger:    logger,
		clock:     time.Now,
	}
}

// CreatePromo adds a promo code. Codes are stored upper-case and must be unique.
func (s *PromoService) CreatePromo(ctx context.Context, req dto.CreatePromoRequest) (*dto.PromoResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "create",
		telemetry.WithAttribute(telemetry.SpanAttrPromoCode, promotion.NormalizeCode(req.Code)))
	defer span.End()

	s.logger.Info("Creating promo code",
		zap.String("code", req.Code),
		zap.String("kind", req.Kind))

	promo, err := buildPromo(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	exists, err := s.promoRepo.ExistsByCode(ctx, promo.Code)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to check promo code existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check promo code availability")
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Promo code already exists")
	}

	if err := s.promoRepo.Save(ctx, promo); err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to save promo code", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create promo code")
	}

	telemetry.SetOK(span)
	s.logger.Info("Promo code created",
		zap.String("id", promo.ID.String()),
		zap.String("code", promo.Code))

	return dto.ToPromoResponse(promo, s.clock()), nil
}

// GetPromo returns a promo code by code, case-insensitively
func (s *PromoService) GetPromo(ctx context.Context, code string) (*dto.PromoResponse, error) {
	promo, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	return dto.ToPromoResponse(promo, s.clock()), nil
}

// ListPromos returns a page of promo codes
func (s *PromoService) ListPromos(ctx context.Context, filter dto.PromoListFilter) (*dto.PromoListResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Search:   filter.Search,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if filter.Kind != "" {
		kind := promotion.DiscountKind(filter.Kind)
		if !kind.IsValid() {
			return nil, shared.NewDomainError("INVALID_KIND", "Invalid kind filter")
		}
		domainFilter.Filters["kind"] = string(kind)
	}
	if filter.Active != nil {
		domainFilter.Filters["active"] = *filter.Active
	}

	promos, err := s.promoRepo.FindAll(ctx, domainFilter)
	if err != nil {
		s.logger.Error("Failed to list promo codes", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list promo codes")
	}
	total, err := s.promoRepo.Count(ctx, domainFilter)
	if err != nil {
		s.logger.Error("Failed to count promo codes", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list promo codes")
	}

	return dto.ToPromoListResponse(promos, total, filter.Page, filter.PageSize, s.clock()), nil
}

// SetActive enables or disables a promo code. Carts already holding a
// disabled code keep it but receive no discount.
func (s *PromoService) SetActive(ctx context.Context, code string, active bool) (*dto.PromoResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "set_active",
		telemetry.WithAttribute(telemetry.SpanAttrPromoCode, promotion.NormalizeCode(code)))
	defer span.End()

	promo, err := s.find(ctx, code)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if promo.Active != active {
		if active {
			promo.Activate()
		} else {
			promo.Deactivate()
		}
		if err := s.promoRepo.Save(ctx, promo); err != nil {
			telemetry.RecordError(span, err)
			s.logger.Error("Failed to update promo code", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update promo code")
		}
		s.logger.Info("Promo code status changed",
			zap.String("code", promo.Code),
			zap.Bool("active", active))
	}

	telemetry.SetOK(span)
	return dto.ToPromoResponse(promo, s.clock()), nil
}

func (s *PromoService) find(ctx context.Context, code string) (*promotion.PromoCode, error) {
	promo, err := s.promoRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrPromoNotFound
		}
		s.logger.Error("Failed to find promo code", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find promo code")
	}
	return promo, nil
}

func buildPromo(req dto.CreatePromoRequest) (*promotion.PromoCode, error) {
	value := decimal.Zero
	if req.Value != nil {
		value = *req.Value
	}

	promo, err := promotion.NewPromoCode(req.Code, promotion.DiscountKind(req.Kind), value, req.BuyQuantity, req.GetQuantity)
	if err != nil {
		return nil, err
	}

	if req.Description != "" {
		promo.SetDescription(req.Description)
	}
	if req.MinOrderAmount != nil {
		if err := promo.SetMinOrderAmount(*req.MinOrderAmount); err != nil {
			return nil, err
		}
	}
	if req.MaxDiscount != nil {
		if !req.MaxDiscount.IsPositive() {
			return nil, shared.NewDomainError("INVALID_MAX_DISCOUNT", "Maximum discount must be greater than 0")
		}
		if err := promo.SetMaxDiscount(*req.MaxDiscount); err != nil {
			return nil, err
		}
	}
	if req.ExpiresAt != nil {
		expiresAt := *req.ExpiresAt
		promo.SetExpiresAt(&expiresAt)
	}
	if req.Inactive {
		promo.Deactivate()
	}
	return promo, nil
}
