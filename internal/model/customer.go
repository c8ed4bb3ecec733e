package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer carries the denormalized account balance. CurrentBalance must
// always equal the chronological sum of its CustomerAccountMovements
// (DEBIT − CREDIT); every balance change writes a movement in the same
// transaction. Positive balance = customer owes money; negative is allowed
// (customer overpaid).
type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string    `gorm:"index;not null"`
	DocNumber      *string   `gorm:"type:varchar(20)"`
	Email          *string
	CurrentBalance decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreditLimit    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// BlockOnLimit: hard stop at the credit limit; false = soft warning only.
	BlockOnLimit bool `gorm:"not null;default:true"`
	MaxDebtDays  int  `gorm:"not null;default:30"`
	Active       bool `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account movement types.
const (
	AccountDebit  = "DEBIT"  // charge: sale on credit
	AccountCredit = "CREDIT" // payment or refund
)

// CustomerAccountMovement is an immutable row in the customer account ledger.
// Movements are NEVER modified or deleted; reversals create inverse entries.
type CustomerAccountMovement struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type       string          `gorm:"type:varchar(10);not null"` // DEBIT | CREDIT
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Balance is the customer balance resulting from this movement.
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"not null"`
	SaleID      *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt   time.Time
}

func (CustomerAccountMovement) TableName() string { return "customer_account_movements" }
