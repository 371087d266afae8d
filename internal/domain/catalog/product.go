package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a sellable catalog entry. Carts only read it: the unit price is
// copied into the line item when the product is added.
type Product struct {
	shared.BaseEntity
	Code        string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Sizes       []string
	Colors      []string
	Status      ProductStatus
}

// NewProduct creates a new active product with zero stock
func NewProduct(code, name string, price decimal.Decimal) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
		Price:      price,
		Sizes:      []string{},
		Colors:     []string{},
		Status:     ProductStatusActive,
	}, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.Touch()
	return nil
}

// SetPrice sets the selling price
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	p.Price = price
	p.Touch()
	return nil
}

// SetStock sets the available stock level
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.Touch()
	return nil
}

// SetVariants replaces the selectable sizes and colors.
// Blank and duplicate entries are dropped.
func (p *Product) SetVariants(sizes, colors []string) {
	p.Sizes = normalizeOptions(sizes)
	p.Colors = normalizeOptions(colors)
	p.Touch()
}

// Activate makes the product purchasable
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	p.Status = ProductStatusActive
	p.Touch()
	return nil
}

// Deactivate hides the product from new carts
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.Status = ProductStatusInactive
	p.Touch()
	return nil
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// HasSize reports whether size is one of the product's sizes
func (p *Product) HasSize(size string) bool {
	return containsOption(p.Sizes, size)
}

// HasColor reports whether color is one of the product's colors
func (p *Product) HasColor(color string) bool {
	return containsOption(p.Colors, color)
}

// ValidateSelection checks that quantity units of the given variant can be
// put in a cart. Products without declared sizes or colors ignore the
// corresponding selector.
func (p *Product) ValidateSelection(size, color string, quantity int) error {
	if !p.IsActive() {
		return shared.NewDomainError("PRODUCT_INACTIVE", fmt.Sprintf("Product %s is not available", p.Code))
	}
	if len(p.Sizes) > 0 {
		if size == "" {
			return shared.NewDomainError("SIZE_REQUIRED", "Please select a size")
		}
		if !p.HasSize(size) {
			return shared.NewDomainError("INVALID_SIZE", fmt.Sprintf("Size %q is not available", size))
		}
	}
	if len(p.Colors) > 0 {
		if color == "" {
			return shared.NewDomainError("COLOR_REQUIRED", "Please select a color")
		}
		if !p.HasColor(color) {
			return shared.NewDomainError("INVALID_COLOR", fmt.Sprintf("Color %q is not available", color))
		}
	}
	if quantity > p.Stock {
		return fmt.Errorf("%w: only %d left for %s", shared.ErrInsufficientStock, p.Stock, p.Code)
	}
	return nil
}

// ProductID returns the product ID
func (p *Product) ProductID() uuid.UUID {
	return p.ID
}

func normalizeOptions(options []string) []string {
	result := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		key := strings.ToLower(o)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, o)
	}
	return result
}

func containsOption(options []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return true
		}
	}
	return false
}

// validateProductCode validates the product code (SKU)
func validateProductCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Product code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
