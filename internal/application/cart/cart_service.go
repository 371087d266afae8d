package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Operation names used for spans and mutation metrics
const (
	OpGetCart         = "get_cart"
	OpAddItem         = "add_item"
	OpUpdateQuantity  = "update_quantity"
	OpRemoveItem      = "remove_item"
	OpClearCart       = "clear_cart"
	OpApplyPromoCode  = "apply_promo_code"
	OpRemovePromoCode = "remove_promo_code"
	OpToggleSelection = "toggle_selection"
	OpSelectAll       = "select_all"
	OpDeselectAll     = "deselect_all"
	OpCheckout        = "checkout"
)

const maxSessionIDLength = 128

// ErrInvalidSession is returned for an empty or oversized session ID
var ErrInvalidSession = shared.NewDomainError("INVALID_SESSION", "Cart session ID is missing or invalid")

// CartService runs cart operations for a session: it loads the stored
// snapshot, applies the change and stores the result. Calls for the same
// session are serialized within the process.
type CartService struct {
	store    cart.SnapshotStore
	products catalog.ProductReader
	promos   promotion.Catalog
	policy   cart.PricingPolicy
	metrics  *telemetry.CartMetrics
	logger   *zap.Logger
	clock    func() time.Time
	locks    *sessionLocks
}

// Option configures a CartService
type Option func(*CartService)

// WithMetrics records cart activity on m
func WithMetrics(m *telemetry.CartMetrics) Option {
	return func(s *CartService) {
		s.metrics = m
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *CartService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for promo expiry and quotes
func WithClock(clock func() time.Time) Option {
	return func(s *CartService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewCartService creates a new CartService
func NewCartService(
	store cart.SnapshotStore,
	products catalog.ProductReader,
	promos promotion.Catalog,
	policy cart.PricingPolicy,
	opts ...Option,
) *CartService {
	s := &CartService{
		store:    store,
		products: products,
		promos:   promos,
		policy:   policy,
		logger:   zap.NewNop(),
		clock:    time.Now,
		locks:    newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutation changes a loaded cart. It reports whether the cart must be stored.
type mutation func(ctx context.Context, c *cart.Cart) (bool, error)

// GetCart returns the session's cart, empty when nothing is stored
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", OpGetCart,
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID))
	defer span.End()

	if err := validateSessionID(sessionID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return ToCartResponse(c), nil
}

// AddItem adds a product variant after checking it against the catalog
func (s *CartService) AddItem(ctx context.Context, sessionID string, req AddItemRequest) (*CartResponse, error) {
	c, err := s.mutate(ctx, sessionID, OpAddItem, func(ctx context.Context, c *cart.Cart) (bool, error) {
		product, err := s.findProduct(ctx, req.ProductID)
		if err != nil {
			return false, err
		}

		quantity := req.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		key := cart.NewItemKey(product.ID, req.Size, req.Color)
		// stock is per product, so every variant line counts
		if err := product.ValidateSelection(key.Size, key.Color, c.ProductUnits(product.ID)+quantity); err != nil {
			return false, err
		}

		if _, err := c.AddItem(product, quantity, key.Size, key.Color); err != nil {
			return false, err
		}
		logger.WithLogger(ctx, s.logger).Debug("Item added to cart",
			zap.String("product_code", product.Code),
			zap.Int("quantity", quantity),
		)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return ToCartResponse(c), nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line and
// unknown lines are ignored. Increases are checked against stock.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, req UpdateQuantityRequest) (*CartResponse, error) {
	c, err := s.mutate(ctx, sessionID, OpUpdateQuantity, func(ctx context.Context, c *cart.Cart) (bool, error) {
		key := req.Key()
		existing, ok := c.Item(key)
		if !ok {
			return false, nil
		}
		if req.Quantity > existing.Quantity {
			product, err := s.findProduct(ctx, key.ProductID)
			if err != nil {
				return false, err
			}
			units := c.ProductUnits(key.ProductID) - existing.Quantity + req.Quantity
			if err := product.ValidateSelection(key.Size, key.Color, units); err != nil {
				return false, err
			}
		}
		c.UpdateQuantity(key, req.Quantity)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return ToCartResponse(c), nil
}

// RemoveItem deletes a line. Unknown lines are ignored.
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, req ItemKeyRequest) (*CartResponse, error) {
	return s.simpleMutation(ctx, sessionID, OpRemoveItem, func(c *cart.Cart) {
		c.RemoveItem(req.Key())
	})
}

// ClearCart empties the cart and drops the promo and selection
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	return s.simpleMutation(ctx, sessionID, OpClearCart, func(c *cart.Cart) {
		c.ClearCart()
	})
}

// ApplyPromoCode attaches a promo code to the cart. A rejected code leaves
// the stored cart untouched and is reported with Applied false.
func (s *CartService) ApplyPromoCode(ctx context.Context, sessionID string, req ApplyPromoRequest) (*ApplyPromoResponse, error) {
	var outcome cart.PromoOutcome
	c, err := s.mutate(ctx, sessionID, OpApplyPromoCode, func(ctx context.Context, c *cart.Cart) (bool, error) {
		var err error
		outcome, err = c.ApplyPromoCode(ctx, req.Code, s.promos)
		if err != nil {
			return false, err
		}

		log := logger.WithLogger(ctx, s.logger)
		if !outcome.Applied {
			// unknown codes are shopper input; keep them out of metric labels
			label := outcome.Code
			if outcome.Reason == promotion.RejectUnknown {
				label = string(promotion.RejectUnknown)
			}
			s.metrics.RecordPromoAttempt(ctx, label, telemetry.PromoOutcomeRejected)
			log.Info("Promo code rejected",
				zap.String("promo_code", outcome.Code),
				zap.String("reason", string(outcome.Reason)),
			)
			return false, nil
		}
		s.metrics.RecordPromoAttempt(ctx, outcome.Code, telemetry.PromoOutcomeApplied)
		log.Info("Promo code applied",
			zap.String("promo_code", outcome.Code),
			zap.String("discount", c.Discount().String()),
		)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	resp := &ApplyPromoResponse{
		Applied: outcome.Applied,
		Code:    outcome.Code,
		Cart:    ToCartResponse(c),
	}
	if !outcome.Applied {
		resp.Reason = string(outcome.Reason)
		resp.Message = outcome.Reason.Message()
	}
	return resp, nil
}

// RemovePromoCode detaches the active promo code
func (s *CartService) RemovePromoCode(ctx context.Context, sessionID string) (*CartResponse, error) {
	return s.simpleMutation(ctx, sessionID, OpRemovePromoCode, func(c *cart.Cart) {
		c.RemovePromoCode()
	})
}

// ToggleSelection flips the checkout mark of a line
func (s *CartService) ToggleSelection(ctx context.Context, sessionID string, req ItemKeyRequest) (*CartResponse, error) {
	return s.simpleMutation(ctx, sessionID, OpToggleSelection, func(c *cart.Cart) {
		c.ToggleItemSelection(req.Key())
	})
}

// SelectAll marks every line for checkout
func (s *CartService) SelectAll(ctx context.Context, sessionID string) (*CartResponse, error) {
	return s.simpleMutation(ctx, sessionID, OpSelectAll, func(c *cart.Cart) {
		c.SelectAllItems()
	})
}

// DeselectAll clears the checkout selection
func (s *CartService) DeselectAll(ctx context.Context, sessionID string) (*CartResponse, error) {
	return s.simpleMutation(ctx, sessionID, OpDeselectAll, func(c *cart.Cart) {
		c.DeselectAllItems()
	})
}

// Checkout builds a quote of the selected lines. It does not modify the cart.
func (s *CartService) Checkout(ctx context.Context, sessionID string) (*CheckoutQuote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", OpCheckout,
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID))
	defer span.End()

	if err := validateSessionID(sessionID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !c.CanCheckout() {
		telemetry.RecordError(span, shared.ErrNothingSelected)
		return nil, shared.ErrNothingSelected
	}

	quote := toCheckoutQuote(c, s.clock())
	s.metrics.RecordCheckout(ctx, quote.Totals.Total, quote.Units)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemCount, quote.Units,
		telemetry.SpanAttrAmount, quote.Totals.Total.String(),
	)
	telemetry.SetOK(span)
	logger.WithLogger(ctx, s.logger).Info("Checkout quote issued",
		zap.Int("units", quote.Units),
		zap.String("total", quote.Totals.Total.String()),
		zap.String("promo_code", quote.PromoCode),
	)
	return quote, nil
}

func (s *CartService) simpleMutation(ctx context.Context, sessionID, op string, fn func(c *cart.Cart)) (*CartResponse, error) {
	c, err := s.mutate(ctx, sessionID, op, func(_ context.Context, c *cart.Cart) (bool, error) {
		fn(c)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return ToCartResponse(c), nil
}

// mutate runs fn on the session's cart under the session lock and stores
// the result when fn asks for it.
func (s *CartService) mutate(ctx context.Context, sessionID, op string, fn mutation) (*cart.Cart, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", op,
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID))
	defer span.End()

	if err := validateSessionID(sessionID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	changed, err := fn(ctx, c)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if changed {
		if err := s.persist(ctx, c); err != nil {
			telemetry.RecordError(span, err)
			logger.WithLogger(ctx, s.logger).Error("Failed to store cart",
				zap.String("operation", op),
				zap.Error(err),
			)
			return nil, err
		}
		s.metrics.RecordMutation(ctx, op)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemCount, c.TotalItems(),
		telemetry.SpanAttrAmount, c.Total().String(),
	)
	telemetry.SetOK(span)
	return c, nil
}

// load restores the stored cart. A missing snapshot yields an empty cart and
// so does a snapshot that no longer decodes into valid items.
func (s *CartService) load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	snap, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.newCart(sessionID), nil
		}
		if errors.Is(err, cart.ErrUnreadableSnapshot) {
			logger.WithLogger(ctx, s.logger).Warn("Discarding undecodable cart snapshot", zap.Error(err))
			return s.newCart(sessionID), nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	promo, err := s.resolvePromo(ctx, snap.PromoCode)
	if err != nil {
		return nil, err
	}

	snap.SessionID = sessionID
	c, err := cart.Restore(*snap, promo, s.policy, cart.WithClock(s.clock))
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Discarding unreadable cart snapshot", zap.Error(err))
		return s.newCart(sessionID), nil
	}
	return c, nil
}

// resolvePromo looks up a stored promo code. Codes that have since been
// removed from the catalog are dropped.
func (s *CartService) resolvePromo(ctx context.Context, code string) (*promotion.PromoCode, error) {
	if code == "" {
		return nil, nil
	}
	promo, err := s.promos.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger.WithLogger(ctx, s.logger).Info("Stored promo code no longer exists",
				zap.String("promo_code", code))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve promo code %s: %w", code, err)
	}
	return promo, nil
}

// persist stores the cart. An empty cart without a promo is deleted instead.
func (s *CartService) persist(ctx context.Context, c *cart.Cart) error {
	if c.IsEmpty() && c.PromoCode() == "" {
		if err := s.store.Delete(ctx, c.SessionID()); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	}
	snap := c.Snapshot()
	if err := s.store.Save(ctx, &snap); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *CartService) findProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

func (s *CartService) newCart(sessionID string) *cart.Cart {
	return cart.NewCart(sessionID, s.policy, cart.WithClock(s.clock))
}

func validateSessionID(sessionID string) error {
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return ErrInvalidSession
	}
	return nil
}
