package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const session = "session-1"

type fixture struct {
	store    *memoryStore
	products productTable
	promos   promoTable
	svc      *CartService

	a, b, big, shirt *catalog.Product
}

func newTestProduct(t *testing.T, code, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(code, "Product "+code, decimal.RequireFromString(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	return p
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemoryStore(),
		products: productTable{},
		promos:   promoTable{},
		a:        newTestProduct(t, "A", "100", 50),
		b:        newTestProduct(t, "B", "50", 50),
		big:      newTestProduct(t, "BIG", "1200", 5),
		shirt:    newTestProduct(t, "SHIRT", "40", 3),
	}
	f.shirt.SetVariants([]string{"S", "M"}, []string{"Red"})
	for _, p := range []*catalog.Product{f.a, f.b, f.big, f.shirt} {
		f.products[p.ID] = p
	}

	buy2, err := promotion.NewBuyXGetYPromo("BUY2GET1", 2, 1)
	require.NoError(t, err)
	flat, err := promotion.NewFixedPromo("FLAT100", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, flat.SetMinOrderAmount(decimal.NewFromInt(1000)))
	save10, err := promotion.NewPercentagePromo("SAVE10", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, save10.SetMaxDiscount(decimal.NewFromInt(200)))
	for _, p := range []*promotion.PromoCode{buy2, flat, save10} {
		f.promos[p.Code] = p
	}

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.svc = NewCartService(f.store, f.products, f.promos, cart.DefaultPricingPolicy(), opts...)
	return f
}

func (f *fixture) add(t *testing.T, p *catalog.Product, qty int) *CartResponse {
	t.Helper()
	resp, err := f.svc.AddItem(context.Background(), session, AddItemRequest{ProductID: p.ID, Quantity: qty})
	require.NoError(t, err)
	return resp
}

func assertAmount(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual),
		"%s: expected %s, got %s", field, expected, actual)
}

func assertTotals(t *testing.T, resp TotalsResponse, subtotal, tax, shipping, discount, total string) {
	t.Helper()
	assertAmount(t, subtotal, resp.Subtotal, "subtotal")
	assertAmount(t, tax, resp.Tax, "tax")
	assertAmount(t, shipping, resp.Shipping, "shipping")
	assertAmount(t, discount, resp.Discount, "discount")
	assertAmount(t, total, resp.Total, "total")
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a domain error, got %v", err)
	return de.Code
}

func TestCartService_GetCart_Empty(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GetCart(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, session, resp.SessionID)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.TotalItems)
	assert.False(t, resp.CanCheckout)
	assertTotals(t, resp.Totals, "0", "0", "0", "0", "0")
	assert.False(t, f.store.has(session))
}

func TestCartService_InvalidSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"", strings.Repeat("x", maxSessionIDLength+1)} {
		_, err := f.svc.GetCart(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidSession)

		_, err = f.svc.AddItem(ctx, id, AddItemRequest{ProductID: f.a.ID})
		assert.ErrorIs(t, err, ErrInvalidSession)

		_, err = f.svc.Checkout(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidSession)
	}
}

func TestCartService_AddItem(t *testing.T) {
	f := newFixture(t)

	resp := f.add(t, f.a, 2)

	require.Len(t, resp.Items, 1)
	item := resp.Items[0]
	assert.Equal(t, f.a.ID, item.ProductID)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.Selected)
	assertAmount(t, "200", item.LineTotal, "line total")
	assert.Equal(t, 2, resp.TotalItems)
	assert.Equal(t, 1, resp.SelectedCount)
	assert.True(t, resp.CanCheckout)
	// 200 + 18% tax + flat shipping below the free shipping threshold
	assertTotals(t, resp.Totals, "200", "36", "50", "0", "286")
	assert.True(t, f.store.has(session))
}

func TestCartService_LineTotalsUsePricingPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sticker := newTestProduct(t, "STICKER", "0.333", 20)
	f.products[sticker.ID] = sticker

	resp, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: sticker.ID, Quantity: 7})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assertAmount(t, "2.33", resp.Items[0].LineTotal, "line total")
	assertAmount(t, "2.33", resp.Totals.Subtotal, "subtotal")

	quote, err := f.svc.Checkout(ctx, session)
	require.NoError(t, err)
	require.Len(t, quote.Items, 1)
	assertAmount(t, "2.33", quote.Items[0].LineTotal, "quoted line total")
}

func TestCartService_AddItem_SameKeyIncrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, f.a, 1)
	resp := f.add(t, f.a, 2)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)

	t.Run("different variant is a different line", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: "S", Color: "Red"})
		require.NoError(t, err)
		resp, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: "M", Color: "Red"})
		require.NoError(t, err)

		assert.Len(t, resp.Items, 3)
		assert.Equal(t, 5, resp.TotalItems)
	})
}

func TestCartService_AddItem_DefaultsQuantity(t *testing.T) {
	for _, qty := range []int{0, -3} {
		f := newFixture(t)
		resp := f.add(t, f.a, qty)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 1, resp.Items[0].Quantity)
	}
}

func TestCartService_AddItem_Validation(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, f *fixture)
		req      func(f *fixture) AddItemRequest
		wantCode string
		wantErr  error
	}{
		{
			name:     "unknown product",
			req:      func(*fixture) AddItemRequest { return AddItemRequest{ProductID: uuid.New(), Quantity: 1} },
			wantCode: "PRODUCT_NOT_FOUND",
		},
		{
			name: "size required",
			req: func(f *fixture) AddItemRequest {
				return AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Color: "Red"}
			},
			wantCode: "SIZE_REQUIRED",
		},
		{
			name: "unknown color",
			req: func(f *fixture) AddItemRequest {
				return AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: "S", Color: "Blue"}
			},
			wantCode: "INVALID_COLOR",
		},
		{
			name: "more than in stock",
			req: func(f *fixture) AddItemRequest {
				return AddItemRequest{ProductID: f.shirt.ID, Quantity: 4, Size: "S", Color: "Red"}
			},
			wantErr: shared.ErrInsufficientStock,
		},
		{
			name: "inactive product",
			setup: func(t *testing.T, f *fixture) {
				require.NoError(t, f.shirt.Deactivate())
			},
			req: func(f *fixture) AddItemRequest {
				return AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: "S", Color: "Red"}
			},
			wantCode: "PRODUCT_INACTIVE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			resp, err := f.svc.AddItem(context.Background(), session, tt.req(f))

			require.Error(t, err)
			assert.Nil(t, resp)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.Equal(t, tt.wantCode, domainCode(t, err))
			}
			assert.False(t, f.store.has(session))
		})
	}
}

func TestCartService_AddItem_StockCountsExistingQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := AddItemRequest{ProductID: f.shirt.ID, Quantity: 2, Size: "S", Color: "Red"}

	_, err := f.svc.AddItem(ctx, session, req)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, session, req)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	resp, err := f.svc.GetCart(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalItems)
}

func TestCartService_StockIsSharedAcrossVariants(t *testing.T) {
	ctx := context.Background()

	t.Run("add of another size", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 2, Size: "S", Color: "Red"})
		require.NoError(t, err)

		_, err = f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 2, Size: "M", Color: "Red"})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		resp, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: "M", Color: "Red"})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TotalItems)
	})

	t.Run("quantity update of another size", func(t *testing.T) {
		f := newFixture(t)
		for _, size := range []string{"S", "M"} {
			_, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: size, Color: "Red"})
			require.NoError(t, err)
		}

		_, err := f.svc.UpdateQuantity(ctx, session, UpdateQuantityRequest{
			ProductID: f.shirt.ID, Size: "M", Color: "Red", Quantity: 3,
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		resp, err := f.svc.UpdateQuantity(ctx, session, UpdateQuantityRequest{
			ProductID: f.shirt.ID, Size: "M", Color: "Red", Quantity: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TotalItems)
	})
}

func TestCartService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("sets the quantity", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 2)

		resp, err := f.svc.UpdateQuantity(ctx, session, UpdateQuantityRequest{ProductID: f.a.ID, Quantity: 5})

		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 5, resp.Items[0].Quantity)
	})

	t.Run("zero behaves like remove", func(t *testing.T) {
		f := newFixture(t)
		other := NewCartService(newMemoryStore(), f.products, f.promos, cart.DefaultPricingPolicy(),
			WithClock(func() time.Time { return fixedNow }))
		for _, svc := range []*CartService{f.svc, other} {
			for _, p := range []*catalog.Product{f.a, f.b} {
				_, err := svc.AddItem(ctx, session, AddItemRequest{ProductID: p.ID, Quantity: 2})
				require.NoError(t, err)
			}
		}

		viaUpdate, err := f.svc.UpdateQuantity(ctx, session, UpdateQuantityRequest{ProductID: f.a.ID, Quantity: 0})
		require.NoError(t, err)
		viaRemove, err := other.RemoveItem(ctx, session, ItemKeyRequest{ProductID: f.a.ID})
		require.NoError(t, err)

		assert.Equal(t, viaRemove, viaUpdate)
	})

	t.Run("unknown line is ignored", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 2)
		saves := f.store.saves

		resp, err := f.svc.UpdateQuantity(ctx, session, UpdateQuantityRequest{ProductID: f.b.ID, Quantity: 3})

		require.NoError(t, err)
		assert.Equal(t, 2, resp.TotalItems)
		assert.Equal(t, saves, f.store.saves)
	})

	t.Run("increase beyond stock", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddItem(ctx, session, AddItemRequest{ProductID: f.shirt.ID, Quantity: 1, Size: "M", Color: "Red"})
		require.NoError(t, err)

		_, err = f.svc.UpdateQuantity(ctx, session, UpdateQuantityRequest{
			ProductID: f.shirt.ID, Size: "M", Color: "Red", Quantity: 10,
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})
}

func TestCartService_RemoveSoleItem(t *testing.T) {
	f := newFixture(t)
	f.add(t, f.a, 3)

	resp, err := f.svc.RemoveItem(context.Background(), session, ItemKeyRequest{ProductID: f.a.ID})

	require.NoError(t, err)
	assert.Zero(t, resp.TotalItems)
	assert.Empty(t, resp.Items)
	assertTotals(t, resp.Totals, "0", "0", "0", "0", "0")
	assert.False(t, f.store.has(session), "empty cart should be deleted from the store")
}

func TestCartService_ApplyPromoCode(t *testing.T) {
	ctx := context.Background()

	t.Run("buy two get one", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 3)
		f.add(t, f.b, 3)

		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "buy2get1"})

		require.NoError(t, err)
		assert.True(t, resp.Applied)
		assert.Equal(t, "BUY2GET1", resp.Code)
		assert.Empty(t, resp.Reason)
		assert.Equal(t, "BUY2GET1", resp.Cart.PromoCode)
		assertTotals(t, resp.Cart.Totals, "450", "45", "50", "200", "345")
	})

	t.Run("fixed with minimum met", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.big, 1)

		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "FLAT100"})

		require.NoError(t, err)
		assert.True(t, resp.Applied)
		assertTotals(t, resp.Cart.Totals, "1200", "198", "0", "100", "1298")
	})

	t.Run("fixed below minimum leaves cart unchanged", func(t *testing.T) {
		f := newFixture(t)
		before := f.add(t, f.a, 8)
		saves := f.store.saves

		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "FLAT100"})

		require.NoError(t, err)
		assert.False(t, resp.Applied)
		assert.Equal(t, string(promotion.RejectBelowMinimum), resp.Reason)
		assert.NotEmpty(t, resp.Message)
		assert.Empty(t, resp.Cart.PromoCode)
		assert.Equal(t, before.Totals, resp.Cart.Totals)
		assert.Equal(t, saves, f.store.saves)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 1)

		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "NOPE"})

		require.NoError(t, err)
		assert.False(t, resp.Applied)
		assert.Equal(t, string(promotion.RejectUnknown), resp.Reason)
	})

	t.Run("expired code", func(t *testing.T) {
		f := newFixture(t)
		expired := fixedNow.Add(-time.Hour)
		f.promos["SAVE10"].SetExpiresAt(&expired)
		f.add(t, f.a, 1)

		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "SAVE10"})

		require.NoError(t, err)
		assert.False(t, resp.Applied)
		assert.Equal(t, string(promotion.RejectExpired), resp.Reason)
	})

	t.Run("new code replaces active code", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 3)

		_, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "SAVE10"})
		require.NoError(t, err)
		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "BUY2GET1"})
		require.NoError(t, err)

		assert.Equal(t, "BUY2GET1", resp.Cart.PromoCode)
		assertAmount(t, "100", resp.Cart.Totals.Discount, "discount")
	})

	t.Run("percentage is capped", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.big, 2)

		resp, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "SAVE10"})

		require.NoError(t, err)
		assert.True(t, resp.Applied)
		assertAmount(t, "200", resp.Cart.Totals.Discount, "discount")
	})
}

func TestCartService_ApplyPromoCode_LookupFailure(t *testing.T) {
	store := new(MockSnapshotStore)
	promos := new(MockPromoCatalog)
	store.On("Load", mock.Anything, session).Return(nil, shared.ErrNotFound)
	promos.On("FindByCode", mock.Anything, "SAVE10").Return(nil, errors.New("connection refused"))

	svc := NewCartService(store, productTable{}, promos, cart.DefaultPricingPolicy())
	resp, err := svc.ApplyPromoCode(context.Background(), session, ApplyPromoRequest{Code: "save10"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "connection refused")
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	promos.AssertExpectations(t)
}

func TestCartService_StoreFailures(t *testing.T) {
	product, err := catalog.NewProduct("A", "Product A", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, product.SetStock(5))
	products := productTable{product.ID: product}

	t.Run("load failure", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("Load", mock.Anything, session).Return(nil, errors.New("redis down"))
		svc := NewCartService(store, products, promoTable{}, cart.DefaultPricingPolicy())

		_, err := svc.GetCart(context.Background(), session)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load cart")
	})

	t.Run("save failure", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("Load", mock.Anything, session).Return(nil, shared.ErrNotFound)
		store.On("Save", mock.Anything, mock.AnythingOfType("*cart.Snapshot")).Return(errors.New("redis down"))
		svc := NewCartService(store, products, promoTable{}, cart.DefaultPricingPolicy())

		resp, err := svc.AddItem(context.Background(), session, AddItemRequest{ProductID: product.ID, Quantity: 1})

		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "failed to save cart")
		store.AssertExpectations(t)
	})
}

func TestCartService_UndecodableSnapshotStartsOver(t *testing.T) {
	product, err := catalog.NewProduct("A", "Product A", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, product.SetStock(5))
	products := productTable{product.ID: product}
	undecodable := fmt.Errorf("%w: session %s: %w", cart.ErrUnreadableSnapshot, session,
		errors.New("json: cannot unmarshal string into Go struct field SnapshotItem.items.quantity of type int"))
	ctx := context.Background()

	t.Run("get returns an empty cart", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("Load", mock.Anything, session).Return(nil, undecodable)
		svc := NewCartService(store, products, promoTable{}, cart.DefaultPricingPolicy())

		resp, err := svc.GetCart(ctx, session)

		require.NoError(t, err)
		assert.Equal(t, 0, resp.TotalItems)
		assertAmount(t, "0", resp.Totals.Total, "total")
	})

	t.Run("clear deletes the stored bytes", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("Load", mock.Anything, session).Return(nil, undecodable)
		store.On("Delete", mock.Anything, session).Return(nil)
		svc := NewCartService(store, products, promoTable{}, cart.DefaultPricingPolicy())

		_, err := svc.ClearCart(ctx, session)

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("add replaces the stored bytes", func(t *testing.T) {
		store := new(MockSnapshotStore)
		store.On("Load", mock.Anything, session).Return(nil, undecodable)
		store.On("Save", mock.Anything, mock.MatchedBy(func(snap *cart.Snapshot) bool {
			return len(snap.Items) == 1 && snap.Items[0].Quantity == 2
		})).Return(nil)
		svc := NewCartService(store, products, promoTable{}, cart.DefaultPricingPolicy())

		resp, err := svc.AddItem(ctx, session, AddItemRequest{ProductID: product.ID, Quantity: 2})

		require.NoError(t, err)
		assert.Equal(t, 2, resp.TotalItems)
		store.AssertExpectations(t)
	})
}

func TestCartService_RestoresStoredCart(t *testing.T) {
	productID := uuid.New()
	stored := func(promoCode string) *cart.Snapshot {
		key := cart.NewItemKey(productID, "", "")
		return &cart.Snapshot{
			SessionID: session,
			Items: []cart.SnapshotItem{
				{ProductID: productID, Name: "Stored", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
			},
			Selected:  []cart.ItemKey{key},
			PromoCode: promoCode,
			UpdatedAt: fixedNow.Add(-time.Hour),
		}
	}

	save10, err := promotion.NewPercentagePromo("SAVE10", decimal.NewFromInt(10))
	require.NoError(t, err)
	promos := promoTable{"SAVE10": save10}

	tests := []struct {
		name         string
		snapshot     *cart.Snapshot
		wantPromo    string
		wantDiscount string
		wantItems    int
	}{
		{"promo resolved", stored("SAVE10"), "SAVE10", "20", 2},
		{"removed promo is dropped", stored("GONE"), "", "0", 2},
		{"no promo", stored(""), "", "0", 2},
		{
			name: "unreadable snapshot starts over",
			snapshot: &cart.Snapshot{
				SessionID: session,
				Items:     []cart.SnapshotItem{{ProductID: productID, Name: "Broken", Quantity: 0}},
			},
			wantDiscount: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockSnapshotStore)
			store.On("Load", mock.Anything, session).Return(tt.snapshot, nil)
			svc := NewCartService(store, productTable{}, promos, cart.DefaultPricingPolicy(),
				WithClock(func() time.Time { return fixedNow }))

			resp, err := svc.GetCart(context.Background(), session)

			require.NoError(t, err)
			assert.Equal(t, tt.wantPromo, resp.PromoCode)
			assert.Equal(t, tt.wantItems, resp.TotalItems)
			assertAmount(t, tt.wantDiscount, resp.Totals.Discount, "discount")
		})
	}
}

func TestCartService_Selection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, f.a, 1)
	f.add(t, f.b, 1)

	resp, err := f.svc.ToggleSelection(ctx, session, ItemKeyRequest{ProductID: f.a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SelectedCount)
	assert.True(t, resp.CanCheckout)

	resp, err = f.svc.DeselectAll(ctx, session)
	require.NoError(t, err)
	assert.Zero(t, resp.SelectedCount)
	assert.False(t, resp.CanCheckout)

	resp, err = f.svc.SelectAll(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SelectedCount)

	// selection never changes pricing
	assertTotals(t, resp.Totals, "150", "27", "50", "0", "227")
}

func TestCartService_ClearCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, f.a, 3)
	_, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "BUY2GET1"})
	require.NoError(t, err)

	resp, err := f.svc.ClearCart(ctx, session)

	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Empty(t, resp.PromoCode)
	assert.Zero(t, resp.SelectedCount)
	assert.False(t, f.store.has(session))
}

func TestCartService_RemovePromoCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, f.a, 3)
	_, err := f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "BUY2GET1"})
	require.NoError(t, err)

	resp, err := f.svc.RemovePromoCode(ctx, session)

	require.NoError(t, err)
	assert.Empty(t, resp.PromoCode)
	assertAmount(t, "0", resp.Totals.Discount, "discount")
	assertAmount(t, "300", resp.Totals.Subtotal, "subtotal")
}

func TestCartService_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("empty selection", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 1)
		_, err := f.svc.DeselectAll(ctx, session)
		require.NoError(t, err)

		quote, err := f.svc.Checkout(ctx, session)

		assert.Nil(t, quote)
		assert.ErrorIs(t, err, shared.ErrNothingSelected)
	})

	t.Run("quotes selected lines", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, f.a, 2)
		f.add(t, f.b, 1)
		_, err := f.svc.ToggleSelection(ctx, session, ItemKeyRequest{ProductID: f.b.ID})
		require.NoError(t, err)
		saves := f.store.saves

		quote, err := f.svc.Checkout(ctx, session)

		require.NoError(t, err)
		require.Len(t, quote.Items, 1)
		assert.Equal(t, f.a.ID, quote.Items[0].ProductID)
		assert.Equal(t, 2, quote.Units)
		assert.Equal(t, fixedNow, quote.QuotedAt)
		assertAmount(t, "250", quote.Totals.Subtotal, "subtotal")
		assert.Equal(t, saves, f.store.saves, "checkout must not write the cart")
	})
}

func TestCartService_ConcurrentAddsOnOneSession(t *testing.T) {
	f := newFixture(t)
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(context.Background(), session, AddItemRequest{ProductID: f.a.ID, Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	resp, err := f.svc.GetCart(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, workers, resp.TotalItems)
	assert.Zero(t, f.svc.locks.size())
}

func TestCartService_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := telemetry.NewCartMetrics(telemetry.CartMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	f := newFixture(t, WithMetrics(metrics))
	ctx := context.Background()
	f.add(t, f.a, 3)
	_, err = f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "BUY2GET1"})
	require.NoError(t, err)
	_, err = f.svc.ApplyPromoCode(ctx, session, ApplyPromoRequest{Code: "WHATEVER"})
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, session)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), sumCounter(t, rm, "storefront_cart_mutations_total"))
	assert.Equal(t, int64(2), sumCounter(t, rm, "storefront_promo_attempts_total"))
	assert.Equal(t, int64(1), sumCounter(t, rm, "storefront_checkout_quotes_total"))
}

func sumCounter(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
