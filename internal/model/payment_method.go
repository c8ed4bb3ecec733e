package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethodKind is the closed set of payment instrument behaviors.
// The orchestrator switches on Kind instead of comparing free-form codes,
// keeping the cash/account/surcharge branches exhaustive.
type PaymentMethodKind string

const (
	KindCash     PaymentMethodKind = "cash"
	KindCard     PaymentMethodKind = "card"
	KindQR       PaymentMethodKind = "qr"
	KindTransfer PaymentMethodKind = "transfer"
	// KindAccount defers settlement to the customer's running balance.
	KindAccount PaymentMethodKind = "account"
)

// PaymentMethod is a read-only registry row. The orchestrator consumes it,
// never mutates it.
type PaymentMethod struct {
	ID   uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code string            `gorm:"type:varchar(30);uniqueIndex;not null"`
	Name string            `gorm:"not null"`
	Kind PaymentMethodKind `gorm:"type:varchar(20);not null"`
	// SurchargePct is signed: positive = surcharge, negative = discount.
	SurchargePct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Active       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AffectsCash reports whether a payment through this method moves physical
// cash in the operator's drawer.
func (m *PaymentMethod) AffectsCash() bool { return m.Kind == KindCash }

// IsAccount reports whether this method charges the customer's account.
func (m *PaymentMethod) IsAccount() bool { return m.Kind == KindAccount }

// Adjustment returns the surcharge (or discount) this method adds to a
// payment of the given amount.
func (m *PaymentMethod) Adjustment(amount decimal.Decimal) decimal.Decimal {
	if m.SurchargePct.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(m.SurchargePct).Div(decimal.NewFromInt(100)).Round(2)
}
