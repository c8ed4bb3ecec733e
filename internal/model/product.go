package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry the orchestrator reads and decrements.
// Only StockGlobal is owned by the transaction core; the rest is catalog
// plumbing maintained elsewhere.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	ListPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	StockGlobal int             `gorm:"not null;default:0"`
	// ManageStock=false or IsService=true exempts the product from the
	// stock ledger entirely.
	ManageStock bool `gorm:"not null;default:true"`
	IsService   bool `gorm:"not null;default:false"`
	// AllowNegativeStock lets a sale drive StockGlobal below zero.
	AllowNegativeStock bool `gorm:"not null;default:false"`
	// IsGeneric marks free-price products: the caller may override the unit
	// price at sale time (miscellaneous sales).
	IsGeneric bool `gorm:"not null;default:false"`
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TracksStock reports whether the stock ledger applies to this product.
func (p *Product) TracksStock() bool {
	return p.ManageStock && !p.IsService
}
