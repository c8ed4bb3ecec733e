package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock movement directions.
const (
	StockIn  = "IN"
	StockOut = "OUT"
)

// Stock movement reasons.
const (
	StockReasonSale           = "SALE"
	StockReasonCreditNote     = "CREDIT_NOTE"
	StockReasonCustomerReturn = "CUSTOMER_RETURN"
	StockReasonCancellation   = "CANCELLATION"
	StockReasonAdjustment     = "ADJUSTMENT"
	StockReasonSupplierReturn = "SUPPLIER_RETURN"
)

// StockMovement records each change to a product's on-hand quantity.
// Append-only; invariant: NewQty = PreviousQty ± Quantity matching Direction.
// Both snapshot fields are derived from the post-update row inside the same
// transaction, never from a stale pre-read.
type StockMovement struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Direction   string    `gorm:"type:varchar(5);not null"`
	Reason      string    `gorm:"type:varchar(30);not null"`
	Quantity    int       `gorm:"not null"` // always positive; Direction carries the sign
	PreviousQty int       `gorm:"not null"`
	NewQty      int       `gorm:"not null"`
	SaleID      *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt   time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
