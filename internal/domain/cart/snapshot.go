package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// ErrUnreadableSnapshot is wrapped by snapshot stores when stored bytes no
// longer decode into a Snapshot.
var ErrUnreadableSnapshot = shared.NewDomainError("UNREADABLE_SNAPSHOT", "Stored cart cannot be read")

// Snapshot is the persisted form of a cart. Totals are not stored; they are
// recomputed when the cart is restored.
type Snapshot struct {
	SessionID string         `json:"session_id"`
	Items     []SnapshotItem `json:"items"`
	Selected  []ItemKey      `json:"selected"`
	PromoCode string         `json:"promo_code,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SnapshotItem is a persisted line item
type SnapshotItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// Snapshot captures the cart's persistent state
func (c *Cart) Snapshot() Snapshot {
	items := make([]SnapshotItem, 0, len(c.items))
	selected := make([]ItemKey, 0, len(c.selected))
	for _, item := range c.items {
		items = append(items, SnapshotItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
		if _, ok := c.selected[item.Key()]; ok {
			selected = append(selected, item.Key())
		}
	}
	return Snapshot{
		SessionID: c.sessionID,
		Items:     items,
		Selected:  selected,
		PromoCode: c.PromoCode(),
		UpdatedAt: c.updatedAt,
	}
}

// Restore rebuilds a cart from a snapshot. promo is the resolved promo for
// snap.PromoCode, or nil when the code no longer exists. Lines with a
// repeated key are merged and selection entries without a line are dropped.
func Restore(snap Snapshot, promo *promotion.PromoCode, policy PricingPolicy, opts ...Option) (*Cart, error) {
	c := NewCart(snap.SessionID, policy, opts...)

	items := make([]LineItem, 0, len(snap.Items))
	for i, si := range snap.Items {
		item, err := NewLineItem(si.ProductID, si.Name, si.UnitPrice, si.Quantity, si.Size, si.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: snapshot item %d: %v", shared.ErrInvalidInput, i, err)
		}
		if idx := indexOf(items, item.Key()); idx >= 0 {
			items[idx] = items[idx].withQuantity(items[idx].Quantity + item.Quantity)
			continue
		}
		items = append(items, item)
	}

	selected := make(map[ItemKey]struct{}, len(snap.Selected))
	for _, key := range snap.Selected {
		key = NewItemKey(key.ProductID, key.Size, key.Color)
		if indexOf(items, key) >= 0 {
			selected[key] = struct{}{}
		}
	}

	c.items = items
	c.selected = selected
	c.promo = promo
	c.Reprice()
	if !snap.UpdatedAt.IsZero() {
		c.updatedAt = snap.UpdatedAt
	}
	return c, nil
}
