package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/promotion"
)

// PromoCodeModel is the persistence model for the PromoCode domain entity.
type PromoCodeModel struct {
	BaseModel
	Code           string                 `gorm:"type:varchar(32);not null;uniqueIndex:idx_promo_code"`
	Description    string                 `gorm:"type:varchar(255)"`
	Kind           promotion.DiscountKind `gorm:"type:varchar(20);not null"`
	Value          decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	BuyQuantity    int                    `gorm:"not null;default:0"`
	GetQuantity    int                    `gorm:"not null;default:0"`
	MinOrderAmount decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	MaxDiscount    decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Active         bool                   `gorm:"not null"`
	ExpiresAt      *time.Time
}

// TableName returns the table name for GORM
func (PromoCodeModel) TableName() string {
	return "promo_codes"
}

// ToDomain converts the persistence model to a domain PromoCode entity.
func (m *PromoCodeModel) ToDomain() *promotion.PromoCode {
	return &promotion.PromoCode{
		BaseEntity:     m.BaseModel.ToDomain(),
		Code:           m.Code,
		Description:    m.Description,
		Kind:           m.Kind,
		Value:          m.Value,
		BuyQuantity:    m.BuyQuantity,
		GetQuantity:    m.GetQuantity,
		MinOrderAmount: m.MinOrderAmount,
		MaxDiscount:    m.MaxDiscount,
		Active:         m.Active,
		ExpiresAt:      m.ExpiresAt,
	}
}

// FromDomain populates the persistence model from a domain PromoCode entity.
func (m *PromoCodeModel) FromDomain(p *promotion.PromoCode) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Description = p.Description
	m.Kind = p.Kind
	m.Value = p.Value
	m.BuyQuantity = p.BuyQuantity
	m.GetQuantity = p.GetQuantity
	m.MinOrderAmount = p.MinOrderAmount
	m.MaxDiscount = p.MaxDiscount
	m.Active = p.Active
	m.ExpiresAt = p.ExpiresAt
}

// PromoCodeModelFromDomain creates a new persistence model from a domain PromoCode entity.
func PromoCodeModelFromDomain(p *promotion.PromoCode) *PromoCodeModel {
	m := &PromoCodeModel{}
	m.FromDomain(p)
	return m
}
