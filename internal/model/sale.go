package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SalePending   = "PENDING"
	SaleCompleted = "COMPLETED"
	SaleCancelled = "CANCELLED"
	SaleRefunded  = "REFUNDED"
)

// Sale document types.
const (
	DocTypeTicket  = "TICKET"
	DocTypeInvoice = "INVOICE" // fiscal — queued to AFIP after commit
)

// Sale is the aggregate documenting one commercial event. It owns its Items
// and Payments (cascade-created, never independently mutated) and is never
// physically deleted: cancellation and refund are status transitions.
type Sale struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// Number is the human-readable sequential ticket number, scoped per
	// branch: T-<branchCode>-NNNNNN, or NC-<branchCode>-NNNNNN for credit
	// notes.
	Number         string          `gorm:"type:varchar(30);uniqueIndex;not null"`
	DocType        string          `gorm:"type:varchar(20);not null;default:'TICKET'"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"`
	ShiftID        *uuid.UUID      `gorm:"type:uuid;index"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountPct    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status         string          `gorm:"type:varchar(20);not null;default:'COMPLETED';index"`
	IsCreditNote   bool            `gorm:"not null;default:false"`
	// OriginalSaleID points backward from a credit note to the sale it
	// reverses. Never cyclic: a credit note cannot be refunded again.
	OriginalSaleID *uuid.UUID `gorm:"type:uuid;index"`
	ReversalReason *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items    []SaleItem `gorm:"foreignKey:SaleID"`
	Payments []Payment  `gorm:"foreignKey:SaleID"`
	Customer *Customer  `gorm:"foreignKey:CustomerID"`
	User     *User      `gorm:"foreignKey:UserID"`
}

// SaleItem captures a product snapshot at time of sale. Name, SKU and prices
// are copied so historical tickets stay stable when the catalog changes.
// Quantity is always positive; on a credit note the line subtotal is negated
// instead.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"not null"`
	SKU         string          `gorm:"type:varchar(40);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Quantity    int             `gorm:"not null"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// Payment is one tendered instrument on a sale.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Reference is an external id, e.g. a card transaction id.
	Reference *string

	Method *PaymentMethod `gorm:"foreignKey:PaymentMethodID"`
}
