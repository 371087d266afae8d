package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/application/promotion/dto"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPromoCodeRepository is a mock implementation of PromoCodeRepository
type MockPromoCodeRepository struct {
	mock.Mock
}

func (m *MockPromoCodeRepository) FindByCode(ctx context.Context, code string) (*promotion.PromoCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.PromoCode), args.Error(1)
}

func (m *MockPromoCodeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]promotion.PromoCode, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]promotion.PromoCode), args.Error(1)
}

func (m *MockPromoCodeRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPromoCodeRepository) Save(ctx context.Context, promo *promotion.PromoCode) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func (m *MockPromoCodeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *MockPromoCodeRepository) *PromoService {
	svc := NewPromoService(repo, zap.NewNop())
	svc.clock = func() time.Time { return fixedNow }
	return svc
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %v", err)
	return domainErr.Code
}

func TestPromoService_CreatePromo(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("ExistsByCode", mock.Anything, "SAVE15").Return(false, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(p *promotion.PromoCode) bool {
		return p.Code == "SAVE15" && p.Kind == promotion.DiscountPercentage && p.HasCap()
	})).Return(nil)

	result, err := svc.CreatePromo(ctx, dto.CreatePromoRequest{
		Code:        "save15",
		Description: "15% off, up to 300",
		Kind:        "percentage",
		Value:       decimalPtr(15),
		MaxDiscount: decimalPtr(300),
	})

	require.NoError(t, err)
	assert.Equal(t, "SAVE15", result.Code)
	assert.Equal(t, "percentage", result.Kind)
	assert.True(t, decimal.NewFromInt(15).Equal(result.Value))
	assert.True(t, decimal.NewFromInt(300).Equal(result.MaxDiscount))
	assert.True(t, result.Active)
	assert.False(t, result.Expired)
	repo.AssertExpectations(t)
}

func TestPromoService_CreatePromo_BuyXGetY(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)
	expiresAt := fixedNow.Add(-time.Hour)

	repo.On("ExistsByCode", mock.Anything, "B3G1").Return(false, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*promotion.PromoCode")).Return(nil)

	result, err := svc.CreatePromo(context.Background(), dto.CreatePromoRequest{
		Code:        "B3G1",
		Kind:        "buy_x_get_y_free",
		Value:       decimalPtr(99),
		BuyQuantity: 3,
		GetQuantity: 1,
		ExpiresAt:   &expiresAt,
		Inactive:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.BuyQuantity)
	assert.Equal(t, 1, result.GetQuantity)
	assert.True(t, result.Value.IsZero())
	assert.False(t, result.Active)
	assert.True(t, result.Expired)
}

func TestPromoService_CreatePromo_Duplicate(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)

	repo.On("ExistsByCode", mock.Anything, "SAVE10").Return(true, nil)

	result, err := svc.CreatePromo(context.Background(), dto.CreatePromoRequest{
		Code:  "SAVE10",
		Kind:  "percentage",
		Value: decimalPtr(10),
	})

	assert.Nil(t, result)
	assert.Equal(t, "ALREADY_EXISTS", domainCode(t, err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPromoService_CreatePromo_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		req      dto.CreatePromoRequest
		wantCode string
	}{
		{
			name:     "percentage over 100",
			req:      dto.CreatePromoRequest{Code: "BIG", Kind: "percentage", Value: decimalPtr(120)},
			wantCode: "INVALID_VALUE",
		},
		{
			name:     "fixed without value",
			req:      dto.CreatePromoRequest{Code: "NOVAL", Kind: "fixed"},
			wantCode: "INVALID_VALUE",
		},
		{
			name:     "unknown kind",
			req:      dto.CreatePromoRequest{Code: "ODD", Kind: "mystery", Value: decimalPtr(5)},
			wantCode: "INVALID_KIND",
		},
		{
			name:     "bad code",
			req:      dto.CreatePromoRequest{Code: "HAS SPACE", Kind: "fixed", Value: decimalPtr(5)},
			wantCode: "INVALID_CODE",
		},
		{
			name:     "negative minimum",
			req:      dto.CreatePromoRequest{Code: "MIN", Kind: "fixed", Value: decimalPtr(5), MinOrderAmount: decimalPtr(-1)},
			wantCode: "INVALID_MIN_ORDER",
		},
		{
			name:     "zero cap",
			req:      dto.CreatePromoRequest{Code: "CAP", Kind: "percentage", Value: decimalPtr(5), MaxDiscount: decimalPtr(0)},
			wantCode: "INVALID_MAX_DISCOUNT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockPromoCodeRepository)
			svc := newTestService(repo)

			_, err := svc.CreatePromo(context.Background(), tt.req)

			assert.Equal(t, tt.wantCode, domainCode(t, err))
			repo.AssertNotCalled(t, "ExistsByCode", mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestPromoService_CreatePromo_RepositoryError(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)

	repo.On("ExistsByCode", mock.Anything, "SAVE10").Return(false, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.CreatePromo(context.Background(), dto.CreatePromoRequest{
		Code:  "SAVE10",
		Kind:  "percentage",
		Value: decimalPtr(10),
	})

	assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
}

func TestPromoService_GetPromo(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	promo, err := promotion.NewFixedPromo("FLAT100", decimal.NewFromInt(100))
	require.NoError(t, err)

	repo.On("FindByCode", ctx, "flat100").Return(promo, nil)
	repo.On("FindByCode", ctx, "NOPE").Return(nil, shared.ErrNotFound)
	repo.On("FindByCode", ctx, "BROKEN").Return(nil, errors.New("timeout"))

	t.Run("found", func(t *testing.T) {
		result, err := svc.GetPromo(ctx, "flat100")
		require.NoError(t, err)
		assert.Equal(t, "FLAT100", result.Code)
		assert.Equal(t, "fixed", result.Kind)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetPromo(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrPromoNotFound)
		assert.Equal(t, "PROMO_NOT_FOUND", domainCode(t, err))
	})

	t.Run("repository error", func(t *testing.T) {
		_, err := svc.GetPromo(ctx, "BROKEN")
		assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
	})
}

func TestPromoService_ListPromos(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	save10, err := promotion.NewPercentagePromo("SAVE10", decimal.NewFromInt(10))
	require.NoError(t, err)
	save20, err := promotion.NewPercentagePromo("SAVE20", decimal.NewFromInt(20))
	require.NoError(t, err)

	active := true
	expectedFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 2 && f.PageSize == 2 &&
			f.Search == "save" &&
			f.Filters["kind"] == "percentage" &&
			f.Filters["active"] == true
	})
	repo.On("FindAll", ctx, expectedFilter).Return([]promotion.PromoCode{*save10, *save20}, nil)
	repo.On("Count", ctx, expectedFilter).Return(int64(5), nil)

	result, err := svc.ListPromos(ctx, dto.PromoListFilter{
		Search:   "save",
		Kind:     "percentage",
		Active:   &active,
		Page:     2,
		PageSize: 2,
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "SAVE10", result.Items[0].Code)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	repo.AssertExpectations(t)
}

func TestPromoService_ListPromos_Defaults(t *testing.T) {
	repo := new(MockPromoCodeRepository)
	svc := newTestService(repo)

	expectedFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 20 && len(f.Filters) == 0
	})
	repo.On("FindAll", mock.Anything, expectedFilter).Return([]promotion.PromoCode{}, nil)
	repo.On("Count", mock.Anything, expectedFilter).Return(int64(0), nil)

	result, err := svc.ListPromos(context.Background(), dto.PromoListFilter{})

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 1, result.Page)
}

func TestPromoService_ListPromos_Errors(t *testing.T) {
	t.Run("invalid kind", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)

		_, err := svc.ListPromos(context.Background(), dto.PromoListFilter{Kind: "bogus"})

		assert.Equal(t, "INVALID_KIND", domainCode(t, err))
		repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	})

	t.Run("find fails", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)
		repo.On("FindAll", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := svc.ListPromos(context.Background(), dto.PromoListFilter{})

		assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
		repo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
	})

	t.Run("count fails", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)
		repo.On("FindAll", mock.Anything, mock.Anything).Return([]promotion.PromoCode{}, nil)
		repo.On("Count", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

		_, err := svc.ListPromos(context.Background(), dto.PromoListFilter{})

		assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
	})
}

func TestPromoService_SetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivate", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)
		promo, err := promotion.NewFixedPromo("FLAT100", decimal.NewFromInt(100))
		require.NoError(t, err)

		repo.On("FindByCode", mock.Anything, "FLAT100").Return(promo, nil)
		repo.On("Save", mock.Anything, promo).Return(nil)

		result, err := svc.SetActive(ctx, "FLAT100", false)

		require.NoError(t, err)
		assert.False(t, result.Active)
		repo.AssertExpectations(t)
	})

	t.Run("unchanged status is not saved", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)
		promo, err := promotion.NewFixedPromo("FLAT100", decimal.NewFromInt(100))
		require.NoError(t, err)

		repo.On("FindByCode", mock.Anything, "FLAT100").Return(promo, nil)

		result, err := svc.SetActive(ctx, "FLAT100", true)

		require.NoError(t, err)
		assert.True(t, result.Active)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)
		repo.On("FindByCode", mock.Anything, "GONE").Return(nil, shared.ErrNotFound)

		_, err := svc.SetActive(ctx, "GONE", true)

		assert.ErrorIs(t, err, ErrPromoNotFound)
	})

	t.Run("save fails", func(t *testing.T) {
		repo := new(MockPromoCodeRepository)
		svc := newTestService(repo)
		promo, err := promotion.NewFixedPromo("FLAT100", decimal.NewFromInt(100))
		require.NoError(t, err)

		repo.On("FindByCode", mock.Anything, "FLAT100").Return(promo, nil)
		repo.On("Save", mock.Anything, promo).Return(errors.New("db down"))

		_, err = svc.SetActive(ctx, "FLAT100", false)

		assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
	})
}
