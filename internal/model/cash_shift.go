package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashRegister is a physical register at a branch. A shift binds one
// operator to one register for a bounded session.
type CashRegister struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Shift states. OPEN → CLOSED is the only transition and CLOSED is terminal.
const (
	ShiftOpen   = "OPEN"
	ShiftClosed = "CLOSED"
)

// CashShift is one operator session on one register. Accumulators are only
// ever updated incrementally, in the same transaction as the movement that
// caused the change — the shift is never recomputed from its movement log.
// Invariant: ExpectedCash == OpeningCash + Σ(IN) − Σ(OUT) over Movements.
type CashShift struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegisterID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	BranchID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	OpeningCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ExpectedCash is the running drawer balance.
	ExpectedCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// CountedCash and CashDifference are populated only at close.
	CountedCash    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CashDifference *decimal.Decimal `gorm:"type:decimal(12,2)"`

	TotalSales       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCreditNotes decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCashIn      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCashOut     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// Per-instrument accumulators for the close report.
	TotalByCard    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalByQR      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:total_by_qr"`
	TotalByAccount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Status   string  `gorm:"type:varchar(10);not null;default:'OPEN';index"`
	Notes    *string
	OpenedAt time.Time
	ClosedAt *time.Time

	Movements []CashMovement `gorm:"foreignKey:ShiftID"`
}

// Cash movement directions.
const (
	CashIn  = "IN"
	CashOut = "OUT"
)

// Cash movement reasons.
const (
	CashReasonOpening      = "OPENING"
	CashReasonSale         = "SALE"
	CashReasonCreditNote   = "CREDIT_NOTE"
	CashReasonCancellation = "CANCELLATION"
	CashReasonDeposit      = "DEPOSIT"
	CashReasonWithdrawal   = "WITHDRAWAL"
	CashReasonClosing      = "CLOSING"
)

// CashMovement is an immutable event in the drawer ledger. Movements are
// never modified or deleted; reversals create inverse entries.
type CashMovement struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Direction string          `gorm:"type:varchar(5);not null"`
	Reason    string          `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"` // always positive
	// Balance is the shift's ExpectedCash after applying this movement.
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"not null"`
	SaleID      *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt   time.Time
}
